package models

import (
	"testing"
	"time"
)

func TestResult_Validate(t *testing.T) {
	tests := []struct {
		name    string
		result  Result
		wantErr bool
	}{
		{"empty", Result{}, false},
		{"valid", Result{
			Inline:  []Finding{{File: "a.go", Line: 3, Comment: "nil deref", Severity: SeverityBlocker}},
			General: []Remark{{Comment: "looks fine otherwise"}},
		}, false},
		{"bad severity", Result{Inline: []Finding{{File: "a.go", Line: 3, Comment: "x", Severity: "critical"}}}, true},
		{"zero line", Result{Inline: []Finding{{File: "a.go", Line: 0, Comment: "x", Severity: SeverityNit}}}, true},
		{"missing file", Result{Inline: []Finding{{Line: 2, Comment: "x", Severity: SeverityNit}}}, true},
		{"empty remark", Result{General: []Remark{{File: "a.go"}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.result.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestResult_Counts(t *testing.T) {
	r := Result{Inline: []Finding{
		{Severity: SeverityBlocker}, {Severity: SeverityNit}, {Severity: SeverityNit}, {Severity: SeverityWarning},
	}}
	c := r.Counts()
	if c.Blocker != 1 || c.Warning != 1 || c.Nit != 2 {
		t.Errorf("Counts() = %+v", c)
	}
}

func TestIndex_Files(t *testing.T) {
	idx := &Index{Version: IndexVersion, CreatedAt: time.Now(), Chunks: []Chunk{
		{File: "b.go"}, {File: "a.go"}, {File: "b.go"},
	}}
	files := idx.Files()
	if len(files) != 2 || files[0] != "b.go" || files[1] != "a.go" {
		t.Errorf("Files() = %v", files)
	}
}
