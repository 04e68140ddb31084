package batch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/spesen/internal/receipt"
	"github.com/zombor/spesen/internal/render"
	"github.com/zombor/spesen/internal/report"
	"github.com/zombor/spesen/internal/scanning"
)

func TestBatch(t *testing.T) {
	// Disable logging during tests
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	RegisterFailHandler(Fail)
	RunSpecs(t, "Batch Suite")
}

// mockProcessor is a mock implementation of Processor keyed by file name
type mockProcessor struct {
	results map[string]*receipt.Result
	calls   []string
}

func (m *mockProcessor) ProcessFile(ctx context.Context, path string) (*receipt.Result, error) {
	name := filepath.Base(path)
	m.calls = append(m.calls, name)
	res, ok := m.results[name]
	if !ok {
		return &receipt.Result{State: receipt.StateFailed}, scanning.ErrOCRUnavailable
	}
	return res, nil
}

// mockRecordStore is a mock implementation of RecordStore
type mockRecordStore struct {
	name, month, date string
	records           []report.Record
	err               error
}

func (m *mockRecordStore) AppendRecords(ctx context.Context, name, month, date string, records []report.Record) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.name, m.month, m.date = name, month, date
	m.records = append(m.records, records...)
	return 7, nil
}

func done(data scanning.ReceiptData, cached bool) *receipt.Result {
	return &receipt.Result{Hash: data.FileHash, Data: &data, Cached: cached, State: receipt.StateDone}
}

var _ = Describe("Runner", func() {
	var (
		inbox     string
		exports   string
		archive   *receipt.LocalStorage
		processor *mockProcessor
		records   *mockRecordStore
		out       *bytes.Buffer
		runner    *Runner
		opts      Options
		summary   *Summary
		err       error
	)

	BeforeEach(func() {
		inbox = GinkgoT().TempDir()
		exports = GinkgoT().TempDir()
		var aerr error
		archive, aerr = receipt.NewLocalStorage(GinkgoT().TempDir())
		Expect(aerr).NotTo(HaveOccurred())

		for _, name := range []string{"a_cafe.jpg", "b_taxi.pdf", "c_kaputt.png", "notiz.txt"} {
			Expect(os.WriteFile(filepath.Join(inbox, name), []byte(name), 0644)).To(Succeed())
		}

		processor = &mockProcessor{results: map[string]*receipt.Result{
			"a_cafe.jpg": done(scanning.ReceiptData{
				Date: "01.11.2025", Amount: scanning.Float(12.30), Currency: "EUR",
				Category: "bewirtung", Description: "Mittagessen", Provider: "Cafe Mitte", FileHash: "h1",
			}, true),
			"b_taxi.pdf": done(scanning.ReceiptData{
				Date: "02.11.2025", Amount: scanning.Float(95), Currency: "EUR", Category: "sonstiges",
				Type: "Taxi", City: "New York", Description: "Taxi (100.00 USD)", OriginalAmount: "100.00 USD",
				OriginalCurrency: "USD", FileHash: "h2",
			}, false),
		}}
		records = &mockRecordStore{}
		out = &bytes.Buffer{}
		opts = Options{Name: "Max", Month: "Nov 2025", Format: render.FormatJSON, ExportsDir: exports}
		runner = NewRunner(processor, records, archive, out)
		runner.now = func() time.Time { return time.Date(2025, time.December, 1, 8, 0, 0, 0, time.UTC) }
	})

	JustBeforeEach(func() {
		summary, err = runner.Run(context.Background(), inbox, opts)
	})

	It("should process supported files in order", func() {
		Expect(err).NotTo(HaveOccurred())
		Expect(processor.calls).To(Equal([]string{"a_cafe.jpg", "b_taxi.pdf", "c_kaputt.png"}))
		Expect(summary.Processed).To(Equal(2))
		Expect(summary.Cached).To(Equal(1))
		Expect(summary.Failed).To(Equal(1))
		Expect(summary.Total).To(Equal(107.3))
		Expect(summary.RunID).NotTo(BeEmpty())
		Expect(ExitCode(summary, err)).To(Equal(ExitOK))
	})

	It("should print a line per receipt and a summary", func() {
		Expect(out.String()).To(ContainSubstring("[1/3] Verarbeite: a_cafe.jpg ✅ 12.30 EUR - bewirtung 📦"))
		Expect(out.String()).To(ContainSubstring("[2/3] Verarbeite: b_taxi.pdf ✅ 100.00 USD - sonstiges → 95.00 EUR\n"))
		Expect(out.String()).To(ContainSubstring("[3/3] Verarbeite: c_kaputt.png ❌ OCR not available"))
		Expect(out.String()).To(ContainSubstring("✅ Erfolgreich: 2 Belege (1 aus Cache)"))
		Expect(out.String()).To(ContainSubstring("❌ Fehler: 1 Belege"))
		Expect(out.String()).To(ContainSubstring("💰 Gesamtsumme: 107.30 EUR"))
	})

	It("should append the records to the report", func() {
		Expect(summary.ReportID).To(Equal(int64(7)))
		Expect(records.name).To(Equal("Max"))
		Expect(records.month).To(Equal("Nov 2025"))
		Expect(records.date).To(Equal("01.12.2025"))
		Expect(records.records).To(HaveLen(2))
		Expect(records.records[0]).To(BeAssignableToTypeOf(&report.Hospitality{}))
		Expect(records.records[1].(*report.Misc).Place).To(Equal("New York (100.00 USD)"))
		Expect(records.records[1].Hash()).To(Equal("h2"))
	})

	It("should export to the month folder", func() {
		path := filepath.Join(exports, "2025", "11_November", "Spesen_Nov_2025.json")
		Expect(summary.Exports).To(Equal([]string{path}))
		Expect(path).To(BeAnExistingFile())
	})

	It("should archive only the processed files", func() {
		dir := filepath.Join(archive.Root(), "2025", "11_November")
		Expect(summary.Archived).To(ConsistOf(
			filepath.Join(dir, "a_cafe.jpg"),
			filepath.Join(dir, "b_taxi.pdf"),
		))
		Expect(filepath.Join(inbox, "a_cafe.jpg")).NotTo(BeAnExistingFile())
		Expect(filepath.Join(inbox, "c_kaputt.png")).To(BeAnExistingFile())
	})

	When("a file with the same name is already archived", func() {
		BeforeEach(func() {
			dir := filepath.Join(archive.Root(), "2025", "11_November")
			Expect(os.MkdirAll(dir, 0755)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(dir, "a_cafe.jpg"), []byte("alt"), 0644)).To(Succeed())
		})

		It("should add a numeric suffix", func() {
			Expect(summary.Archived).To(ContainElement(filepath.Join(archive.Root(), "2025", "11_November", "a_cafe_1.jpg")))
		})
	})

	When("persistence and archiving are disabled", func() {
		BeforeEach(func() {
			runner = NewRunner(processor, nil, nil, out)
		})

		It("should leave the inbox alone", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.ReportID).To(BeZero())
			Expect(records.records).To(BeEmpty())
			Expect(filepath.Join(inbox, "a_cafe.jpg")).To(BeAnExistingFile())
		})
	})

	When("the database fails", func() {
		BeforeEach(func() {
			records.err = report.ErrPersistence
		})

		It("should report the failure separately and still export", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(errors.Is(summary.PersistErr, report.ErrPersistence)).To(BeTrue())
			Expect(out.String()).To(ContainSubstring("⚠️  Datenbank-Fehler"))
			Expect(summary.Exports).To(HaveLen(1))
		})

		It("should exit with the persistence code", func() {
			Expect(ExitCode(summary, err)).To(Equal(ExitPersistence))
		})
	})

	When("an output path is given", func() {
		BeforeEach(func() {
			opts.Output = filepath.Join(exports, "abrechnung")
			opts.Format = render.FormatBoth
		})

		It("should write every format there", func() {
			Expect(summary.Exports).To(Equal([]string{
				filepath.Join(exports, "abrechnung.xlsx"),
				filepath.Join(exports, "abrechnung.pdf"),
			}))
		})
	})

	When("no month is given", func() {
		BeforeEach(func() {
			opts.Month = ""
		})

		It("should use the current month", func() {
			Expect(records.month).To(Equal("Dec 2025"))
			Expect(summary.Archived[0]).To(ContainSubstring(filepath.Join("2025", "12_Dezember")))
		})
	})

	When("every file fails", func() {
		BeforeEach(func() {
			processor.results = nil
		})

		It("should stop without saving", func() {
			Expect(err).To(MatchError(ErrNothingProcessed))
			Expect(out.String()).To(ContainSubstring("Keine Belege verarbeitet"))
			Expect(records.records).To(BeEmpty())
			Expect(summary.Exports).To(BeEmpty())
			Expect(ExitCode(summary, err)).To(Equal(ExitFailed))
		})
	})

	When("the folder has no receipts", func() {
		BeforeEach(func() {
			inbox = GinkgoT().TempDir()
		})

		It("should return ErrNoReceipts", func() {
			Expect(err).To(MatchError(ErrNoReceipts))
		})
	})

	When("the folder does not exist", func() {
		BeforeEach(func() {
			inbox = filepath.Join(inbox, "fehlt")
		})

		It("should return ErrFolderMissing", func() {
			Expect(err).To(MatchError(ErrFolderMissing))
			Expect(processor.calls).To(BeEmpty())
		})
	})
})
