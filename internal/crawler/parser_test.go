package crawler

import (
	"strings"
	"testing"
)

// TestDataFileLinks tests extraction of .XPT links from a listing page.
func TestDataFileLinks(t *testing.T) {
	t.Parallel()

	page := `
<html><body>
<table>
<tr><td><a href="/Nchs/Nhanes/2017-2018/DEMO_J.XPT">DEMO_J Data</a></td></tr>
<tr><td><a href="/Nchs/Nhanes/2017-2018/DEMO_J.htm">DEMO_J Doc</a></td></tr>
<tr><td><a href="/Nchs/Nhanes/2015-2016/DEMO_I.XPT">DEMO_I Data</a></td></tr>
<tr><td><a href="https://wwwn.cdc.gov/Nchs/Nhanes/1999-2000/demo.xpt">DEMO Data</a></td></tr>
<tr><td><a href="/Nchs/Nhanes/2017-2018/DEMO_J.XPT">duplicate</a></td></tr>
<tr><td><a>no href</a></td></tr>
</table>
</body></html>`

	p, err := NewParser("https://wwwn.cdc.gov/nchs/nhanes/search/datapage.aspx?Component=Demographics")
	if err != nil {
		t.Fatalf("NewParser() error = %v", err)
	}

	links, err := p.DataFileLinks(strings.NewReader(page))
	if err != nil {
		t.Fatalf("DataFileLinks() error = %v", err)
	}

	want := []string{
		"https://wwwn.cdc.gov/Nchs/Nhanes/1999-2000/demo.xpt",
		"https://wwwn.cdc.gov/Nchs/Nhanes/2015-2016/DEMO_I.XPT",
		"https://wwwn.cdc.gov/Nchs/Nhanes/2017-2018/DEMO_J.XPT",
	}

	if len(links) != len(want) {
		t.Fatalf("got %d links %v, want %d", len(links), links, len(want))
	}
	for i := range want {
		if links[i] != want[i] {
			t.Errorf("link %d = %q, want %q", i, links[i], want[i])
		}
	}
}

// TestDataFileLinksEmptyPage tests a page without data links.
func TestDataFileLinksEmptyPage(t *testing.T) {
	t.Parallel()

	p, err := NewParser("https://wwwn.cdc.gov/")
	if err != nil {
		t.Fatalf("NewParser() error = %v", err)
	}

	links, err := p.DataFileLinks(strings.NewReader("<html><body><p>maintenance</p></body></html>"))
	if err != nil {
		t.Fatalf("DataFileLinks() error = %v", err)
	}
	if len(links) != 0 {
		t.Errorf("got %d links, want 0", len(links))
	}
}

// TestDatasetTitle tests dataset title extraction from documentation pages.
func TestDatasetTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		page string
		want string
	}{
		{
			name: "title in page header",
			page: `<html><body><div id="PageHeader"><h3>Demographic Variables and Sample Weights (DEMO_J)</h3></div></body></html>`,
			want: "Demographic Variables and Sample Weights",
		},
		{
			name: "bare h3 without header div",
			page: `<html><body><h3>Blood Pressure (BPX_J)</h3></body></html>`,
			want: "Blood Pressure",
		},
		{
			name: "no parenthetical",
			page: `<html><body><div id="PageHeader"><h3>Dietary Interview</h3></div></body></html>`,
			want: "Dietary Interview",
		},
		{
			name: "no title at all",
			page: `<html><body><p>nothing here</p></body></html>`,
			want: "",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := DatasetTitle(strings.NewReader(tt.page))
			if err != nil {
				t.Fatalf("DatasetTitle() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DatasetTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}
