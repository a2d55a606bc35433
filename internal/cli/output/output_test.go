package output

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type row struct {
	Name    string    `json:"name"`
	Count   int       `json:"count"`
	Detail  string    `json:"detail" table:"wide"`
	Secret  string    `table:"-"`
	When    time.Time `json:"when"`
	private string
}

type name string

func (n name) String() string { return "n:" + string(n) }

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestNewFormatter(t *testing.T) {
	if _, ok := NewFormatter(FormatJSON, false).(*JSONFormatter); !ok {
		t.Error("json format should yield JSONFormatter")
	}
	if _, ok := NewFormatter(FormatYAML, false).(*YAMLFormatter); !ok {
		t.Error("yaml format should yield YAMLFormatter")
	}
	if tf, ok := NewFormatter(FormatTable, true).(*TableFormatter); !ok || !tf.Wide {
		t.Error("table format should yield a wide TableFormatter")
	}
}

func TestJSONAndYAML(t *testing.T) {
	data := map[string]any{"records": 2}

	var jb bytes.Buffer
	if err := (&JSONFormatter{}).Format(&jb, data); err != nil {
		t.Fatal(err)
	}
	if jb.String() != "{\n  \"records\": 2\n}\n" {
		t.Errorf("json = %q", jb.String())
	}

	var yb bytes.Buffer
	if err := (&YAMLFormatter{}).Format(&yb, data); err != nil {
		t.Fatal(err)
	}
	if yb.String() != "records: 2\n" {
		t.Errorf("yaml = %q", yb.String())
	}
}

func TestTableFormatter_Slice(t *testing.T) {
	rows := []*row{
		{Name: "a.B", Count: 1, Detail: "x", Secret: "s"},
		{Name: "a.C", Count: 22},
	}

	var buf bytes.Buffer
	if err := (&TableFormatter{}).Format(&buf, rows); err != nil {
		t.Fatal(err)
	}
	want := "NAME  COUNT  WHEN\n" +
		"a.B   1      -\n" +
		"a.C   22     -\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}

	buf.Reset()
	if err := (&TableFormatter{Wide: true, NoHeaders: true}).Format(&buf, rows); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "NAME") || !strings.Contains(buf.String(), "x") {
		t.Errorf("wide no-header table = %q", buf.String())
	}
}

func TestTableFormatter_Struct(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TableFormatter{}).Format(&buf, row{Name: "a.B", Count: 3}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "FIELD") || !strings.Contains(out, "count  3") {
		t.Errorf("struct table = %q", out)
	}
}

func TestTableFormatter_Fallback(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TableFormatter{}).Format(&buf, []string{"a"}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "[\n  \"a\"\n]\n" {
		t.Errorf("fallback = %q", buf.String())
	}
}

func TestTable_Render(t *testing.T) {
	tb := &Table{Headers: []string{"A", "B"}}
	tb.AddRow("1", "22")

	var buf bytes.Buffer
	if err := tb.Render(&buf); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "A  B\n1  22\n" {
		t.Errorf("Render() = %q", buf.String())
	}
}

func TestFormatValue(t *testing.T) {
	when := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var nilPtr *int
	tests := []struct {
		in   any
		want string
	}{
		{"", "-"},
		{"x", "x"},
		{int32(-4), "-4"},
		{uint8(7), "7"},
		{1.5, "1.50"},
		{true, "true"},
		{[]int{}, "-"},
		{[]int{1, 2}, "[2 items]"},
		{map[string]int{"a": 1}, "{1 keys}"},
		{when, "2026-01-02T03:04:05Z"},
		{time.Time{}, "-"},
		{name("a"), "n:a"},
		{nilPtr, "-"},
		{struct {
			A int `json:"a"`
		}{1}, `{"a":1}`},
	}
	for _, tt := range tests {
		if got := FormatValue(reflect.ValueOf(tt.in)); got != tt.want {
			t.Errorf("FormatValue(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := FormatValue(reflect.Value{}); got != "-" {
		t.Errorf("invalid value = %q", got)
	}
}

func TestToSnakeCase(t *testing.T) {
	if got := toSnakeCase("RecordCount"); got != "record_count" {
		t.Errorf("toSnakeCase = %q", got)
	}
}
