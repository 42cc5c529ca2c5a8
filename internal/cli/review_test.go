package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/kensa/internal/models"
)

func sampleResult() *models.Result {
	anchored, unanchored := true, false
	return &models.Result{
		Inline: []models.Finding{
			{File: "a.go", Line: 3, Comment: "nil deref", Severity: models.SeverityBlocker, Snippet: "x.y", Anchored: &anchored},
			{File: "a.go", Line: 99, Comment: "naming", Severity: models.SeverityNit, Anchored: &unanchored},
		},
		General: []models.Remark{{Comment: "mostly fine"}, {File: "b.go", Comment: "add tests"}},
	}
}

func TestWriteReview_block(t *testing.T) {
	res := sampleResult()
	rep := NewReviewReport(res, models.Block, res.Inline[:1])
	var buf bytes.Buffer
	if err := WriteReview(&buf, rep, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"mostly fine",
		"b.go: add tests",
		"BLOCKER a.go:3 nil deref",
		"NIT a.go:99 [unanchored] naming",
		"1 blocker, 0 warning, 1 nit",
		"BLOCK: commit rejected",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "a.go:3 [unanchored]") {
		t.Error("anchored finding marked unanchored")
	}
}

func TestWriteReview_allow(t *testing.T) {
	rep := NewReviewReport(&models.Result{}, models.Allow, nil)
	var buf bytes.Buffer
	if err := WriteReview(&buf, rep, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "ALLOW") || strings.Contains(buf.String(), "BLOCK") {
		t.Errorf("got %q", buf.String())
	}
}

func TestWriteReview_noResult(t *testing.T) {
	rep := NewReviewReport(nil, models.Block, nil)
	if !rep.NoResult {
		t.Fatal("NoResult should be set for a nil result")
	}
	var buf bytes.Buffer
	if err := WriteReview(&buf, rep, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "no usable review") || !strings.Contains(buf.String(), "BLOCK") {
		t.Errorf("got %q", buf.String())
	}
}

func TestWriteReview_JSON(t *testing.T) {
	res := sampleResult()
	rep := NewReviewReport(res, models.Block, res.Inline[:1])
	rep.RunID = "run-1"
	var buf bytes.Buffer
	if err := WriteReview(&buf, rep, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded ReviewReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.Decision != models.Block || decoded.Counts.Blocker != 1 || len(decoded.Inline) != 2 || decoded.RunID != "run-1" {
		t.Errorf("decoded: %+v", decoded)
	}
	if decoded.Inline[1].Anchored == nil || *decoded.Inline[1].Anchored {
		t.Error("anchored flag lost in JSON")
	}
}
