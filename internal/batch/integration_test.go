package batch_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/spesen/internal/batch"
	"github.com/zombor/spesen/internal/currency"
	"github.com/zombor/spesen/internal/receipt"
	"github.com/zombor/spesen/internal/reconcile"
	"github.com/zombor/spesen/internal/render"
	"github.com/zombor/spesen/internal/report"
	"github.com/zombor/spesen/internal/scanning"
)

// countingRecognizer is a TextRecognizer that counts its calls
type countingRecognizer struct {
	calls int
}

func (c *countingRecognizer) RecognizeText(ctx context.Context, img image.Image) (string, error) {
	c.calls++
	return "Beleg 01.11.2025 Summe 20,00 EUR", nil
}

func writePNG(path string, width int) {
	img := image.NewRGBA(image.Rect(0, 0, width, 40))
	for x := 0; x < width; x++ {
		img.Set(x, x%40, color.Black)
	}
	var buf bytes.Buffer
	Expect(png.Encode(&buf, img)).To(Succeed())
	Expect(os.WriteFile(path, buf.Bytes(), 0644)).To(Succeed())
}

func chatResponse(content string) http.HandlerFunc {
	return ghttp.CombineHandlers(
		ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
		ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
			"message": map[string]any{"role": "assistant", "content": content},
			"done":    true,
		}),
	)
}

var _ = Describe("Integration", func() {
	var (
		tempDir    string
		inbox      string
		ollama     *ghttp.Server
		cache      *receipt.JSONFileStore
		store      *report.Store
		recognizer *countingRecognizer
		runner     *batch.Runner
		opts       batch.Options
		out        *bytes.Buffer
	)

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()
		inbox = filepath.Join(tempDir, "inbox")
		Expect(os.MkdirAll(inbox, 0755)).To(Succeed())
		writePNG(filepath.Join(inbox, "a_taxi.png"), 60)
		writePNG(filepath.Join(inbox, "b_cafe.png"), 80)

		ollama = ghttp.NewServer()
		ollama.AppendHandlers(
			chatResponse(`{"datum": "02.11.2025", "betrag": 100, "waehrung": "USD", "kategorie": "sonstiges", "typ": "Taxi", "beschreibung": "Taxi", "anbieter": "Yellow Cab", "stadt": "New York"}`),
			chatResponse(`{"datum": "01.11.2025", "betrag": 20.00, "waehrung": "EUR", "kategorie": "bewirtung", "beschreibung": "Mittagessen", "anbieter": "Café Mitte GmbH"}`),
		)

		extractor, err := scanning.NewOllama(ollama.URL(), "llava")
		Expect(err).NotTo(HaveOccurred())

		cache = receipt.NewJSONFileStore(filepath.Join(tempDir, "data", ".beleg_cache.json"))
		store, err = report.NewStore(filepath.Join(tempDir, "data", "spesen.db"))
		Expect(err).NotTo(HaveOccurred())

		recognizer = &countingRecognizer{}
		normalizer := currency.NewNormalizer(currency.StaticSource{"USD": 0.95})
		pipeline := receipt.NewPipeline(cache, recognizer, scanning.NewResilient(extractor, 0), normalizer)

		out = &bytes.Buffer{}
		runner = batch.NewRunner(pipeline, store, nil, out)
		opts = batch.Options{
			Name:       "Max Mustermann",
			Month:      "Nov 2025",
			Format:     render.FormatJSON,
			ExportsDir: filepath.Join(tempDir, "exports"),
		}
	})

	AfterEach(func() {
		ollama.Close()
		store.Close()
	})

	It("should extract, cache, store and export receipts", func() {
		summary, err := runner.Run(context.Background(), inbox, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Processed).To(Equal(2))
		Expect(summary.Cached).To(BeZero())
		Expect(summary.Total).To(Equal(115.0))
		Expect(ollama.ReceivedRequests()).To(HaveLen(2))
		Expect(cache.Len()).To(Equal(2))

		r, err := store.FindReport(context.Background(), "Max Mustermann", "Nov 2025")
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Records).To(HaveLen(2))
		Expect(r.Records[0]).To(BeAssignableToTypeOf(&report.Hospitality{}))
		Expect(r.Records[1].(*report.Misc).Place).To(Equal("New York (100.00 USD)"))
		Expect(r.Records[1].Total()).To(Equal(95.0))
		for _, rec := range r.Records {
			Expect(rec.Hash()).To(HaveLen(32))
		}

		Expect(filepath.Join(tempDir, "exports", "2025", "11_November", "Spesen_Nov_2025.json")).To(BeAnExistingFile())
	})

	It("should serve a second run from the cache", func() {
		_, err := runner.Run(context.Background(), inbox, opts)
		Expect(err).NotTo(HaveOccurred())
		ocrCalls := recognizer.calls

		out.Reset()
		summary, err := runner.Run(context.Background(), inbox, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Cached).To(Equal(2))
		Expect(recognizer.calls).To(Equal(ocrCalls))
		Expect(ollama.ReceivedRequests()).To(HaveLen(2))
		Expect(out.String()).To(ContainSubstring("100.00 USD - sonstiges → 95.00 EUR 📦"))

		r, err := store.FindReport(context.Background(), "Max Mustermann", "Nov 2025")
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Records).To(HaveLen(4))
	})

	It("should relink legacy records to the cached receipts", func() {
		_, err := runner.Run(context.Background(), inbox, opts)
		Expect(err).NotTo(HaveOccurred())

		_, err = store.AppendRecords(context.Background(), "Max Mustermann", "Okt 2025", "", []report.Record{
			&report.Hospitality{Date: "01.11.2025", Guests: "Cafe Mitte", Amount: 20},
			&report.Hospitality{Date: "05.11.2025", Guests: "Bar", Amount: 12},
		})
		Expect(err).NotTo(HaveOccurred())

		stats, err := reconcile.New(cache, store).Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(stats).To(Equal(reconcile.Stats{Updated: 1, AlreadyLinked: 2, NotFound: 1}))

		r, err := store.FindReport(context.Background(), "Max Mustermann", "Okt 2025")
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Records[0].Hash()).To(Equal(receipt.HashBytes(mustRead(filepath.Join(inbox, "b_cafe.png")))))
		Expect(r.Records[1].Hash()).To(BeEmpty())
	})
})

func mustRead(path string) []byte {
	data, err := os.ReadFile(path)
	Expect(err).NotTo(HaveOccurred())
	return data
}
