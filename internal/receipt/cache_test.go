package receipt

import (
	"encoding/json"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/spesen/internal/scanning"
)

func sampleEntry() *CacheEntry {
	return &CacheEntry{
		ReceiptData: scanning.ReceiptData{
			Date:        "01.01.2025",
			Amount:      scanning.Float(20),
			Currency:    "EUR",
			Category:    "bewirtung",
			Description: "Mittagessen",
			Provider:    "Café Mitte GmbH",
			FileHash:    "abc",
		},
		File: "beleg.pdf",
		Path: "/data/scans/beleg.pdf",
	}
}

// cacheStoreBehavior runs the shared CacheStore contract against a store
func cacheStoreBehavior(newStore func() CacheStore) {
	var store CacheStore

	BeforeEach(func() {
		store = newStore()
	})

	It("should return nil for an unknown hash", func() {
		entry, err := store.Get("unknown")
		Expect(err).NotTo(HaveOccurred())
		Expect(entry).To(BeNil())
	})

	It("should return a stored entry", func() {
		Expect(store.Put("abc", sampleEntry())).To(Succeed())

		entry, err := store.Get("abc")
		Expect(err).NotTo(HaveOccurred())
		Expect(entry.Provider).To(Equal("Café Mitte GmbH"))
		Expect(entry.Path).To(Equal("/data/scans/beleg.pdf"))
		Expect(*entry.Amount).To(Equal(20.0))
	})

	It("should never persist the cached flag", func() {
		e := sampleEntry()
		e.Cached = true
		Expect(store.Put("abc", e)).To(Succeed())

		entry, err := store.Get("abc")
		Expect(err).NotTo(HaveOccurred())
		Expect(entry.Cached).To(BeFalse())
	})

	It("should replace an entry on a second put", func() {
		Expect(store.Put("abc", sampleEntry())).To(Succeed())
		e := sampleEntry()
		e.Path = "/app/belege/beleg.pdf"
		Expect(store.Put("abc", e)).To(Succeed())

		entry, err := store.Get("abc")
		Expect(err).NotTo(HaveOccurred())
		Expect(entry.Path).To(Equal("/app/belege/beleg.pdf"))
	})

	It("should scan every entry", func() {
		Expect(store.Put("a", sampleEntry())).To(Succeed())
		Expect(store.Put("b", sampleEntry())).To(Succeed())

		var hashes []string
		Expect(store.Scan(func(hash string, entry *CacheEntry) error {
			hashes = append(hashes, hash)
			return nil
		})).To(Succeed())
		Expect(hashes).To(ConsistOf("a", "b"))
	})
}

var _ = Describe("JSONFileStore", func() {
	var path string

	BeforeEach(func() {
		path = filepath.Join(GinkgoT().TempDir(), ".beleg_cache.json")
	})

	cacheStoreBehavior(func() CacheStore {
		return NewJSONFileStore(path)
	})

	It("should write the German field names", func() {
		store := NewJSONFileStore(path)
		Expect(store.Put("abc", sampleEntry())).To(Succeed())

		raw, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())

		var decoded map[string]map[string]any
		Expect(json.Unmarshal(raw, &decoded)).To(Succeed())
		Expect(decoded["abc"]).To(HaveKeyWithValue("anbieter", "Café Mitte GmbH"))
		Expect(decoded["abc"]).To(HaveKeyWithValue("datei_pfad", "/data/scans/beleg.pdf"))
		Expect(decoded["abc"]).To(HaveKeyWithValue("betrag", 20.0))
		Expect(decoded["abc"]).NotTo(HaveKey("Cached"))
	})

	When("the cache file is corrupt", func() {
		BeforeEach(func() {
			Expect(os.WriteFile(path, []byte("{not json"), 0644)).To(Succeed())
		})

		It("should behave as empty", func() {
			store := NewJSONFileStore(path)
			entry, err := store.Get("abc")
			Expect(err).NotTo(HaveOccurred())
			Expect(entry).To(BeNil())
			Expect(store.Len()).To(Equal(0))
		})

		It("should be replaced by the next write", func() {
			store := NewJSONFileStore(path)
			Expect(store.Put("abc", sampleEntry())).To(Succeed())
			Expect(store.Len()).To(Equal(1))
		})
	})
})

var _ = Describe("BoltStore", func() {
	var stores []*BoltStore

	AfterEach(func() {
		for _, s := range stores {
			s.Close()
		}
		stores = nil
	})

	cacheStoreBehavior(func() CacheStore {
		store, err := NewBoltStore(filepath.Join(GinkgoT().TempDir(), "cache.db"))
		Expect(err).NotTo(HaveOccurred())
		stores = append(stores, store)
		return store
	})
})

var _ = Describe("Cache", func() {
	var store *memoryStore

	BeforeEach(func() {
		store = newMemoryStore()
	})

	It("should mark looked-up entries as cached", func() {
		store.entries["abc"] = sampleEntry()
		entry := NewCache(store).Lookup("abc")
		Expect(entry).NotTo(BeNil())
		Expect(entry.Cached).To(BeTrue())
	})

	It("should report disabled when there is no store", func() {
		cache := NewCache(nil)
		Expect(cache.Enabled()).To(BeFalse())
		Expect(cache.Lookup("abc")).To(BeNil())
		Expect(cache.Store("abc", sampleEntry())).To(BeFalse())
	})
})

var _ = Describe("HashBytes", func() {
	It("should return the MD5 hex digest", func() {
		Expect(HashBytes([]byte("hello"))).To(Equal("5d41402abc4b2a76b9719d911017c592"))
	})

	It("should match the file hash of the same content", func() {
		path := filepath.Join(GinkgoT().TempDir(), "a.bin")
		Expect(os.WriteFile(path, []byte("hello"), 0644)).To(Succeed())

		h, err := HashFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(h).To(Equal(HashBytes([]byte("hello"))))
	})
})
