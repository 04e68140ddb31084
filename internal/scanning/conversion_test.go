package scanning

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func encodePNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	Expect(png.Encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("FileLoader", func() {
	var (
		filename string
		data     []byte
		pages    []image.Image
		err      error
	)

	JustBeforeEach(func() {
		pages, err = FileLoader{}.LoadPages(filename, data)
	})

	When("loading a PNG", func() {
		BeforeEach(func() {
			filename = "beleg.PNG"
			data = encodePNG(40, 20)
		})

		It("should return a single page", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(pages).To(HaveLen(1))
			Expect(pages[0].Bounds().Dx()).To(Equal(40))
		})
	})

	When("the extension is not supported", func() {
		BeforeEach(func() {
			filename = "notes.txt"
			data = []byte("hello")
		})

		It("should return ErrUnsupportedType", func() {
			Expect(err).To(MatchError(ErrUnsupportedType))
		})
	})

	When("the image data is corrupt", func() {
		BeforeEach(func() {
			filename = "scan.jpg"
			data = []byte("not an image")
		})

		It("should return a decode error", func() {
			Expect(err).To(MatchError(ContainSubstring("decoding image")))
		})
	})
})

var _ = Describe("IsSupported", func() {
	It("should accept receipt formats regardless of case", func() {
		Expect(IsSupported("a.pdf")).To(BeTrue())
		Expect(IsSupported("b.JPEG")).To(BeTrue())
		Expect(IsSupported("c.tiff")).To(BeTrue())
		Expect(IsSupported("d.bmp")).To(BeTrue())
	})

	It("should reject other files", func() {
		Expect(IsSupported("e.docx")).To(BeFalse())
		Expect(IsSupported("README")).To(BeFalse())
	})
})

var _ = Describe("PrepareForOCR", func() {
	It("should upscale narrow images to the minimum width", func() {
		img := image.NewRGBA(image.Rect(0, 0, 500, 250))
		gray := PrepareForOCR(img)
		Expect(gray.Bounds().Dx()).To(Equal(2000))
		Expect(gray.Bounds().Dy()).To(Equal(1000))
	})

	It("should keep wide images at their size", func() {
		img := image.NewRGBA(image.Rect(0, 0, 2400, 100))
		gray := PrepareForOCR(img)
		Expect(gray.Bounds().Dx()).To(Equal(2400))
	})
})

var _ = Describe("PrepareForVision", func() {
	It("should shrink large pages to fit the preview size", func() {
		img := image.NewRGBA(image.Rect(0, 0, 3136, 1000))
		out, err := PrepareForVision(img)
		Expect(err).NotTo(HaveOccurred())

		decoded, err := jpeg.Decode(bytes.NewReader(out))
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded.Bounds().Dx()).To(Equal(1568))
		Expect(decoded.Bounds().Dy()).To(Equal(500))
	})

	It("should not enlarge small pages", func() {
		img := image.NewRGBA(image.Rect(0, 0, 300, 400))
		out, err := PrepareForVision(img)
		Expect(err).NotTo(HaveOccurred())

		decoded, err := jpeg.Decode(bytes.NewReader(out))
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded.Bounds().Dx()).To(Equal(300))
	})
})
