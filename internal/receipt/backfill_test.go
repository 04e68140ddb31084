package receipt

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Backfiller", func() {
	var (
		store      *memoryStore
		scans      string
		backfiller *Backfiller
	)

	BeforeEach(func() {
		store = newMemoryStore()
		scans = GinkgoT().TempDir()

		Expect(os.MkdirAll(filepath.Join(scans, "2025", "01"), 0755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(scans, "2025", "01", "found.pdf"), []byte("found content"), 0644)).To(Succeed())

		store.entries[HashBytes([]byte("found content"))] = &CacheEntry{File: "found.pdf"}
		store.entries["missing"] = &CacheEntry{File: "missing.pdf"}
		store.entries["mapped"] = &CacheEntry{File: "x.pdf", Path: "/data/scans/x.pdf"}
		store.entries["noname"] = &CacheEntry{}

		backfiller = NewBackfiller(store, []string{filepath.Join(scans, "does-not-exist"), scans}, []PathMapping{
			{Host: scans, Container: "/data/scans"},
		})
	})

	Describe("BackfillAll", func() {
		var (
			stats BackfillStats
			err   error
		)

		JustBeforeEach(func() {
			stats, err = backfiller.BackfillAll()
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should count every outcome", func() {
			Expect(stats).To(Equal(BackfillStats{Updated: 1, AlreadySet: 1, NotFound: 2}))
		})

		It("should store the mapped container path", func() {
			entry := store.entries[HashBytes([]byte("found content"))]
			Expect(entry.Path).To(Equal("/data/scans/2025/01/found.pdf"))
		})

		When("hash verification is enabled and the content differs", func() {
			BeforeEach(func() {
				Expect(os.WriteFile(filepath.Join(scans, "2025", "01", "found.pdf"), []byte("edited"), 0644)).To(Succeed())
				backfiller.VerifyHash = true
			})

			It("should not link the file", func() {
				Expect(stats.Updated).To(Equal(0))
				Expect(stats.NotFound).To(Equal(3))
			})
		})
	})

	Describe("BackfillPath", func() {
		It("should update a single entry", func() {
			path, ok, err := backfiller.BackfillPath(HashBytes([]byte("found content")))
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(path).To(Equal("/data/scans/2025/01/found.pdf"))
		})

		It("should report unknown hashes", func() {
			_, ok, err := backfiller.BackfillPath("nope")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
	})
})
