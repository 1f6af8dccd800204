package radnotate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/radnotate/radnotate/pkg/radnotate/internalerr"
	"github.com/radnotate/radnotate/pkg/radnotate/scandb"
	"github.com/radnotate/radnotate/pkg/radnotate/structure"
	"github.com/radnotate/radnotate/pkg/radnotate/vocab"
)

const e2eScan = `<LidcReadMessage xmlns="http://www.nih.gov">
  <ResponseHeader>
    <StudyInstanceUID>1.3.6.1.4.1.14519.5.2.1.6279</StudyInstanceUID>
    <SeriesInstanceUID>1.3.6.1.4.1.14519.5.2.2.1234</SeriesInstanceUID>
    <DateService>2000-01-01</DateService>
  </ResponseHeader>
  <readingSession>
    <unblindedReadNodule>
      <noduleID>Nodule 001</noduleID>
      <characteristics>
        <subtlety>5</subtlety>
        <texture>5</texture>
      </characteristics>
      <roi>
        <imageSOP_UID>1.2.840.1</imageSOP_UID>
        <xCoord>312</xCoord>
        <yCoord>217</yCoord>
      </roi>
    </unblindedReadNodule>
  </readingSession>
</LidcReadMessage>`

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return New(Options{
		Normalizer: vocab.New(vocab.Dictionary{
			Synonyms: map[string][]string{
				"solid": {"solid_texture"},
			},
		}),
	})
}

func writeScan(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scan.xml")
	if err := os.WriteFile(path, []byte(e2eScan), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// End-to-end: classify, analyze, index, and search one document through the
// facade.
func TestEnginePipeline(t *testing.T) {
	eng := newTestEngine(t)
	defer eng.Close()
	path := writeScan(t)

	c, err := eng.Classify(path)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if c != structure.CaseLIDCSingleSession {
		t.Errorf("Classify = %q", c)
	}

	doc, err := eng.Analyze(path)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(doc.Nodules) != 1 {
		t.Fatalf("len(Nodules) = %d, want 1", len(doc.Nodules))
	}
	if doc.Extraction.OverallConfidence == nil {
		t.Fatal("no confidence on analyzed document")
	}

	kws, err := eng.Keywords(path)
	if err != nil {
		t.Fatalf("Keywords: %v", err)
	}
	if len(kws) == 0 {
		t.Fatal("no keywords extracted")
	}
	eng.IndexKeywords(kws)

	// texture=5 maps to the semantic descriptor "solid"; the synonym
	// "solid_texture" should reach it through expansion.
	resp := eng.Search("solid_texture", true, 0.0)
	if resp.TotalResults == 0 {
		t.Error("synonym-expanded search found nothing")
	}

	resp = eng.Search("very AND clear", false, 0.0)
	if resp.TotalResults == 0 {
		t.Error("AND search found nothing")
	}
	for _, r := range resp.Results {
		if r.KeywordText != "very_clear" {
			t.Errorf("unexpected AND result %q", r.KeywordText)
		}
	}
}

func TestEngineBatch(t *testing.T) {
	eng := newTestEngine(t)
	defer eng.Close()
	path := writeScan(t)
	missing := filepath.Join(t.TempDir(), "missing.xml")

	var progressed []string
	docs, failures := eng.AnalyzeBatch([]string{path, missing}, func(i, total int, p string) {
		progressed = append(progressed, p)
	})
	if len(docs) != 1 || len(failures) != 1 {
		t.Errorf("docs = %d, failures = %d", len(docs), len(failures))
	}
	if len(progressed) != 2 {
		t.Errorf("progress calls = %d, want 2", len(progressed))
	}
	if !errors.Is(failures[missing], internalerr.ErrNotFound) {
		t.Errorf("failures[missing] = %v", failures[missing])
	}
}

func TestEngineScanCapability(t *testing.T) {
	eng := newTestEngine(t)
	defer eng.Close()

	if eng.HasScanSource() {
		t.Error("HasScanSource = true without a source")
	}
	_, _, err := eng.ScanDocuments(context.Background(), scandb.Filter{})
	if !errors.Is(err, internalerr.ErrStoreUnavailable) {
		t.Errorf("err = %v, want ErrStoreUnavailable", err)
	}
}
