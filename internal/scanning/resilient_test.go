package scanning

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// mockExtractor is a mock implementation of Extractor
type mockExtractor struct {
	data   *ReceiptData
	err    error
	delay  time.Duration
	calls  int
	closed bool
}

func (m *mockExtractor) Extract(ctx context.Context, text string, image []byte) (*ReceiptData, error) {
	m.calls++
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.data, nil
}

func (m *mockExtractor) Close() error {
	m.closed = true
	return nil
}

var _ = Describe("Resilient", func() {
	var (
		primary   *mockExtractor
		extractor *Resilient
		data      *ReceiptData
		err       error
	)

	const ocrText = "Beleg 05.06.2025 Summe 12,50 EUR"

	BeforeEach(func() {
		primary = &mockExtractor{
			data: &ReceiptData{Date: "05.06.2025", Amount: Float(12.5), Provider: "Bäckerei"},
		}
		extractor = NewResilient(primary, time.Second)
	})

	JustBeforeEach(func() {
		data, err = extractor.Extract(context.Background(), ocrText, nil)
	})

	When("the primary succeeds", func() {
		It("should return the primary result", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(data.Provider).To(Equal("Bäckerei"))
		})
	})

	When("the primary fails", func() {
		BeforeEach(func() {
			primary.err = errors.New("connection refused")
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should return the fallback result", func() {
			Expect(data.Date).To(Equal("05.06.2025"))
			Expect(*data.Amount).To(BeNumerically("~", 12.5, 0.001))
			Expect(data.Provider).To(BeEmpty())
		})
	})

	When("the primary times out", func() {
		BeforeEach(func() {
			primary.delay = time.Second
			extractor = NewResilient(primary, 20*time.Millisecond)
		})

		It("should degrade to the fallback", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(data.Date).To(Equal("05.06.2025"))
		})
	})

	When("no primary is configured", func() {
		BeforeEach(func() {
			extractor = NewResilient(nil, 0)
		})

		It("should use the fallback", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(data.Date).To(Equal("05.06.2025"))
		})

		It("should close without error", func() {
			Expect(extractor.Close()).To(Succeed())
		})
	})

	Describe("Close", func() {
		It("should close the primary", func() {
			Expect(extractor.Close()).To(Succeed())
			Expect(primary.closed).To(BeTrue())
		})
	})
})
