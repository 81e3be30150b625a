package replace

import (
	"reflect"
	"testing"
)

func TestRegistry_ForExtension(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		name    string
		ext     string
		wantExt string
		wantOK  bool
	}{
		{"with dot", ".csv", ".csv", true},
		{"without dot", "csv", ".csv", true},
		{"upper case", ".XML", ".xml", true},
		{"mixed case no dot", "Pdf", ".pdf", true},
		{"xlsx", ".xlsx", ".xlsx", true},
		{"docx", ".docx", ".docx", true},
		{"opaque xpt", ".xpt", ".xpt", true},
		{"unsupported", ".exe", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, ok := r.ForExtension(tt.ext)
			if ok != tt.wantOK {
				t.Fatalf("ForExtension(%q) ok = %v, want %v", tt.ext, ok, tt.wantOK)
			}
			if ok && h.Ext() != tt.wantExt {
				t.Errorf("handler ext = %q, want %q", h.Ext(), tt.wantExt)
			}
		})
	}
}

func TestRegistry_Supported(t *testing.T) {
	r := NewRegistry()
	want := []string{".csv", ".docx", ".pdf", ".xlsx", ".xml", ".xpt"}
	if got := r.Supported(); !reflect.DeepEqual(got, want) {
		t.Errorf("Supported() = %v, want %v", got, want)
	}
}
