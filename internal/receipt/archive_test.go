package receipt

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		inbox   string
		root    string
		storage Storage
	)

	BeforeEach(func() {
		inbox = GinkgoT().TempDir()
		root = filepath.Join(GinkgoT().TempDir(), "archiv")
		var err error
		storage, err = NewLocalStorage(root)
		Expect(err).NotTo(HaveOccurred())
	})

	writeInbox := func(name, content string) string {
		path := filepath.Join(inbox, name)
		Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
		return path
	}

	Describe("Archive", func() {
		var (
			source string
			target string
			err    error
		)

		BeforeEach(func() {
			source = writeInbox("beleg.pdf", "first")
		})

		JustBeforeEach(func() {
			target, err = storage.Archive(source, filepath.Join("2025", "03_März"))
		})

		When("the target is free", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should move the file into the month folder", func() {
				Expect(target).To(Equal(filepath.Join(root, "2025", "03_März", "beleg.pdf")))
				Expect(target).To(BeAnExistingFile())
				Expect(source).NotTo(BeAnExistingFile())
			})
		})

		When("files with the same name are already archived", func() {
			BeforeEach(func() {
				dir := filepath.Join(root, "2025", "03_März")
				Expect(os.MkdirAll(dir, 0755)).To(Succeed())
				Expect(os.WriteFile(filepath.Join(dir, "beleg.pdf"), []byte("old"), 0644)).To(Succeed())
				Expect(os.WriteFile(filepath.Join(dir, "beleg_1.pdf"), []byte("older"), 0644)).To(Succeed())
			})

			It("should add the next free numeric suffix", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(filepath.Base(target)).To(Equal("beleg_2.pdf"))
			})

			It("should not overwrite the existing files", func() {
				old, readErr := os.ReadFile(filepath.Join(root, "2025", "03_März", "beleg.pdf"))
				Expect(readErr).NotTo(HaveOccurred())
				Expect(string(old)).To(Equal("old"))
			})
		})

		When("the source is missing", func() {
			BeforeEach(func() {
				source = filepath.Join(inbox, "gone.pdf")
			})

			It("should return an error", func() {
				Expect(err).To(HaveOccurred())
			})
		})
	})
})

var _ = Describe("CopyFile", func() {
	It("should copy content and refuse to overwrite", func() {
		dir := GinkgoT().TempDir()
		src := filepath.Join(dir, "a.jpg")
		dst := filepath.Join(dir, "b.jpg")
		Expect(os.WriteFile(src, []byte("jpeg"), 0644)).To(Succeed())

		Expect(CopyFile(src, dst)).To(Succeed())
		content, err := os.ReadFile(dst)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(content)).To(Equal("jpeg"))

		Expect(CopyFile(src, dst)).NotTo(Succeed())
	})
})
