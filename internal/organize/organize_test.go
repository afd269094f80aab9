package organize

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/inkhuang/nhaneskit/internal/model"
)

// writeCSV writes lines as a CSV file under dir/cycle/component/name and
// returns its path.
func writeCSV(t *testing.T, dir, cycle, component, name string, lines ...string) string {
	t.Helper()

	path := filepath.Join(dir, cycle, component, name)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOrganizerFileDictAndGroups(t *testing.T) {
	t.Parallel()

	csvDir := t.TempDir()
	writeCSV(t, csvDir, "2017-2018", "Demographics", "DEMO_J.csv", "SEQN,RIAGENDR", "1,2")
	writeCSV(t, csvDir, "2015-2016", "Demographics", "DEMO_I.csv", "SEQN,RIAGENDR", "2,1")
	writeCSV(t, csvDir, "2017-2018", "Dietary", "DR1TOT_J.csv", "SEQN,DR1TKCAL", "1,2000")

	o := New(csvDir, t.TempDir(), t.TempDir())
	files, err := o.FileDict(".csv")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 3 {
		t.Fatalf("len(files) = %d, want 3", len(files))
	}

	groups := o.Groups(files)
	if len(groups) != 2 {
		t.Fatalf("len(groups) = %d, want 2", len(groups))
	}
	if groups[0].Prefix != "DEMO" || groups[1].Prefix != "DR1TOT" {
		t.Errorf("prefixes = %q, %q, want DEMO, DR1TOT", groups[0].Prefix, groups[1].Prefix)
	}
	// Members sorted by file name: DEMO_I before DEMO_J.
	if got := filepath.Base(groups[0].Members[0]); got != "DEMO_I.csv" {
		t.Errorf("first member = %s, want DEMO_I.csv", got)
	}
	if !groups[1].Singleton() {
		t.Error("DR1TOT should be a singleton group")
	}
}

func TestOrganizerCheckColumns(t *testing.T) {
	t.Parallel()

	csvDir := t.TempDir()
	writeCSV(t, csvDir, "2015-2016", "Demographics", "DEMO_I.csv", "SEQN,RIAGENDR", "2,1")
	writeCSV(t, csvDir, "2017-2018", "Demographics", "DEMO_J.csv", "SEQN,RIAGENDR", "1,2")
	writeCSV(t, csvDir, "2015-2016", "Laboratory", "ALB_I.csv", "SEQN,URXUMA", "2,8.5")
	writeCSV(t, csvDir, "2017-2018", "Laboratory", "ALB_J.csv", "SEQN,URXUMA,URXUCR", "1,9,100")

	o := New(csvDir, t.TempDir(), t.TempDir())
	files, err := o.FileDict(".csv")
	if err != nil {
		t.Fatal(err)
	}
	groups := o.Groups(files)

	report := model.NewRunReport(model.StageMerge, "")
	if err := o.CheckColumns(context.Background(), groups, report); err != nil {
		t.Fatal(err)
	}

	if groups[0].Prefix != "ALB" {
		t.Fatalf("groups[0].Prefix = %s, want ALB", groups[0].Prefix)
	}
	if groups[0].Compatible {
		t.Error("ALB group should be incompatible")
	}
	if len(groups[0].ColumnSets) != 2 {
		t.Errorf("ALB column sets = %d, want 2", len(groups[0].ColumnSets))
	}

	if !groups[1].Compatible {
		t.Error("DEMO group should be compatible")
	}
	if want := []string{"SEQN", "RIAGENDR"}; !reflect.DeepEqual(groups[1].Columns, want) {
		t.Errorf("DEMO columns = %v, want %v", groups[1].Columns, want)
	}
}

func TestOrganizerCheckColumnsOrderMatters(t *testing.T) {
	t.Parallel()

	csvDir := t.TempDir()
	writeCSV(t, csvDir, "2015-2016", "Examination", "BPX_I.csv", "SEQN,BPXSY1", "2,120")
	writeCSV(t, csvDir, "2017-2018", "Examination", "BPX_J.csv", "BPXSY1,SEQN", "118,1")

	o := New(csvDir, t.TempDir(), t.TempDir())
	files, err := o.FileDict(".csv")
	if err != nil {
		t.Fatal(err)
	}
	groups := o.Groups(files)

	report := model.NewRunReport(model.StageMerge, "")
	if err := o.CheckColumns(context.Background(), groups, report); err != nil {
		t.Fatal(err)
	}
	if groups[0].Compatible {
		t.Error("same columns in a different order must not be compatible")
	}
}

func TestOrganizerMerge(t *testing.T) {
	t.Parallel()

	csvDir := t.TempDir()
	mergedDir := filepath.Join(t.TempDir(), "merged")
	writeCSV(t, csvDir, "2015-2016", "Demographics", "DEMO_I.csv", "SEQN,RIAGENDR", "2,1", "3,2")
	writeCSV(t, csvDir, "2017-2018", "Demographics", "DEMO_J.csv", "SEQN,RIAGENDR", "1,2")
	writeCSV(t, csvDir, "2017-2018", "Dietary", "DR1TOT_J.csv", "SEQN,DR1TKCAL", "1,2000")

	o := New(csvDir, mergedDir, t.TempDir())
	files, err := o.FileDict(".csv")
	if err != nil {
		t.Fatal(err)
	}
	groups := o.Groups(files)

	ctx := context.Background()
	report := model.NewRunReport(model.StageMerge, "")
	if err := o.CheckColumns(ctx, groups, report); err != nil {
		t.Fatal(err)
	}
	if err := o.Merge(ctx, groups, report); err != nil {
		t.Fatal(err)
	}

	if groups[0].MergedPath == "" {
		t.Fatal("DEMO group was not merged")
	}
	if groups[0].Rows != 3 {
		t.Errorf("merged rows = %d, want 3", groups[0].Rows)
	}
	data, err := os.ReadFile(groups[0].MergedPath)
	if err != nil {
		t.Fatal(err)
	}
	want := "SEQN,RIAGENDR\n2,1\n3,2\n1,2\n"
	if string(data) != want {
		t.Errorf("merged content = %q, want %q", string(data), want)
	}

	// Singleton groups are never merged.
	if groups[1].MergedPath != "" {
		t.Errorf("singleton group was merged to %s", groups[1].MergedPath)
	}
}

func TestOrganizerClassify(t *testing.T) {
	t.Parallel()

	csvDir := t.TempDir()
	classifiedDir := filepath.Join(t.TempDir(), "classified")
	src := writeCSV(t, csvDir, "2017-2018", "Demographics", "DEMO_J.csv", "SEQN", "1")

	sidecar := strings.TrimSuffix(src, ".csv") + ".htm"
	page := `<html><body><div id="PageHeader"><h3>Demographic Variables (DEMO_J)</h3></div></body></html>`
	if err := os.WriteFile(sidecar, []byte(page), 0600); err != nil {
		t.Fatal(err)
	}

	o := New(csvDir, t.TempDir(), classifiedDir)
	files, err := o.FileDict(".csv")
	if err != nil {
		t.Fatal(err)
	}
	groups := o.Groups(files)

	ctx := context.Background()
	report := model.NewRunReport(model.StageClassify, "")
	if err := o.Classify(ctx, groups, report); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(classifiedDir, "DEMO", "Demographics_2017-2018_DEMO_J.csv")
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("classified file missing: %v", err)
	}
	destSidecar := strings.TrimSuffix(dest, ".csv") + ".htm"
	if _, err := os.Stat(destSidecar); err != nil {
		t.Fatalf("classified sidecar missing: %v", err)
	}
	if len(report.Classified) != 1 || report.Classified[0] != dest {
		t.Errorf("report.Classified = %v, want [%s]", report.Classified, dest)
	}

	titles, err := o.Titles(ctx, groups)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Demographic Variables"}; !reflect.DeepEqual(titles["DEMO"], want) {
		t.Errorf("titles[DEMO] = %v, want %v", titles["DEMO"], want)
	}
}

func TestOrganizerWriteMergeDicts(t *testing.T) {
	t.Parallel()

	csvDir := t.TempDir()
	outDir := t.TempDir()
	writeCSV(t, csvDir, "2015-2016", "Demographics", "DEMO_I.csv", "SEQN", "2")
	writeCSV(t, csvDir, "2017-2018", "Demographics", "DEMO_J.csv", "SEQN", "1")

	o := New(csvDir, t.TempDir(), t.TempDir())
	files, err := o.FileDict(".csv")
	if err != nil {
		t.Fatal(err)
	}
	groups := o.Groups(files)
	report := model.NewRunReport(model.StageMerge, "")
	if err := o.CheckColumns(context.Background(), groups, report); err != nil {
		t.Fatal(err)
	}

	if err := o.WriteMergeDicts(outDir, files, groups); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{FileDictName, GroupDictName, SameColsDictName, DiffColsDictName} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("dictionary %s missing: %v", name, err)
		}
		yamlTwin := strings.TrimSuffix(name, ".json") + ".yml"
		if _, err := os.Stat(filepath.Join(outDir, yamlTwin)); err != nil {
			t.Errorf("dictionary %s missing: %v", yamlTwin, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(outDir, GroupDictName))
	if err != nil {
		t.Fatal(err)
	}
	var byPrefix map[string][]string
	if err := json.Unmarshal(data, &byPrefix); err != nil {
		t.Fatal(err)
	}
	if want := []string{"DEMO_I.csv", "DEMO_J.csv"}; !reflect.DeepEqual(byPrefix["DEMO"], want) {
		t.Errorf("group dict DEMO = %v, want %v", byPrefix["DEMO"], want)
	}
}
