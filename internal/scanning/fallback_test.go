package scanning

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("FallbackExtract", func() {
	var (
		text string
		data *ReceiptData
	)

	JustBeforeEach(func() {
		data = FallbackExtract(text)
	})

	When("the text contains a date and a EUR amount", func() {
		BeforeEach(func() {
			text = "Cafe Mitte\nDatum 12.03.2025 13:45\nSumme 45,30 EUR\nVielen Dank"
		})

		It("should extract the date", func() {
			Expect(data.Date).To(Equal("12.03.2025"))
		})

		It("should extract the amount", func() {
			Expect(data.Amount).NotTo(BeNil())
			Expect(*data.Amount).To(BeNumerically("~", 45.30, 0.001))
		})
	})

	When("the year has two digits", func() {
		BeforeEach(func() {
			text = "1/2/25 Taxi 18.00 €"
		})

		It("should pad day and month and expand the year", func() {
			Expect(data.Date).To(Equal("01.02.2025"))
		})

		It("should accept the euro sign", func() {
			Expect(*data.Amount).To(BeNumerically("~", 18.0, 0.001))
		})
	})

	When("the currency marker is lower case", func() {
		BeforeEach(func() {
			text = "total 9.99 eur"
		})

		It("should match case-insensitively", func() {
			Expect(data.Amount).NotTo(BeNil())
			Expect(*data.Amount).To(BeNumerically("~", 9.99, 0.001))
		})
	})

	When("nothing recognizable is present", func() {
		BeforeEach(func() {
			text = "lorem ipsum"
		})

		It("should leave date and amount empty", func() {
			Expect(data.Date).To(BeEmpty())
			Expect(data.Amount).To(BeNil())
		})
	})

	Describe("Fallback extractor", func() {
		It("should never return an error", func() {
			result, err := Fallback{}.Extract(context.Background(), "", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).NotTo(BeNil())
		})
	})
})
