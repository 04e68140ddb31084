package scanning

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Ollama", func() {
	var (
		server    *ghttp.Server
		extractor *Ollama
		data      *ReceiptData
		err       error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		extractor, err = NewOllama(server.URL(), "llava")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		data, err = extractor.Extract(context.Background(), "Uber 23,10 EUR", []byte{0xff, 0xd8})
	})

	When("the API answers with receipt JSON", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
				ghttp.VerifyContentType("application/json"),
				func(w http.ResponseWriter, r *http.Request) {
					body, readErr := io.ReadAll(r.Body)
					Expect(readErr).NotTo(HaveOccurred())
					var req ollamaChatRequest
					Expect(json.Unmarshal(body, &req)).To(Succeed())
					Expect(req.Model).To(Equal("llava"))
					Expect(req.Messages).To(HaveLen(2))
					Expect(req.Messages[1].Content).To(HaveSuffix("Uber 23,10 EUR"))
					Expect(req.Messages[1].Images).To(HaveLen(1))
				},
				ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
					Message: ollamaMessage{
						Role:    "assistant",
						Content: `{"datum": "03.04.2025", "betrag": 23.1, "kategorie": "sonstiges", "typ": "Uber", "stadt": "Wien", "distanz_km": 7.4}`,
					},
					Done: true,
				}),
			))
		})

		It("should return the parsed data", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(data.Type).To(Equal("Uber"))
			Expect(data.City).To(Equal("Wien"))
			Expect(*data.DistanceKM).To(BeNumerically("~", 7.4, 0.001))
		})
	})

	When("the API returns an error status", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "model not loaded"))
		})

		It("should return an error with the status", func() {
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("status 500"))
		})
	})

	When("the model answers without JSON", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
				Message: ollamaMessage{Role: "assistant", Content: "no idea"},
				Done:    true,
			}))
		})

		It("should return a parse error", func() {
			Expect(err).To(MatchError(ContainSubstring("parsing receipt data")))
		})
	})
})
