package itemcode

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFormat(t *testing.T) {
	if got := Format("acme", 7); got != "ACME-7" {
		t.Errorf("Format = %q, want %q", got, "ACME-7")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		code    string
		project string
		n       int
		wantErr bool
	}{
		{code: "ACME-12", project: "ACME", n: 12},
		{code: " acme-3 ", project: "ACME", n: 3},
		{code: "MY-PROJ-9", project: "MY-PROJ", n: 9},
		{code: "ACME", wantErr: true},
		{code: "ACME-", wantErr: true},
		{code: "-4", wantErr: true},
		{code: "ACME-x", wantErr: true},
		{code: "ACME-0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			project, n, err := Parse(tt.code)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) expected error", tt.code)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.code, err)
			}
			if project != tt.project || n != tt.n {
				t.Errorf("Parse(%q) = %q, %d; want %q, %d", tt.code, project, n, tt.project, tt.n)
			}
		})
	}
}

func TestExtract(t *testing.T) {
	got := Extract("Fixed in ACME-2, see also ACME-10 and ACME-2. Not acme-3.")
	want := []string{"ACME-2", "ACME-10"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract mismatch (-want +got):\n%s", diff)
	}

	if got := Extract("nothing here"); got != nil {
		t.Errorf("Extract = %v, want nil", got)
	}
}
