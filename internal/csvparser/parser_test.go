package csvparser

import (
	"strings"
	"testing"

	"golang.org/x/text/encoding/simplifiedchinese"
)

func TestParseBasic(t *testing.T) {
	in := "\ufeffPO Number,PO Line,Brand\n" +
		"P1,1,Acme\n" +
		",,\n" +
		"P2,1,\"Multi\nline\"\n" +
		"P3,2\n"

	table, err := Parse(strings.NewReader(in), DefaultSettings())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if table.Headers[0] != "PO Number" {
		t.Fatalf("BOM not stripped: %q", table.Headers[0])
	}
	if len(table.Rows) != 3 {
		t.Fatalf("rows = %d, want 3 (blank row skipped)", len(table.Rows))
	}
	want := []int{2, 4, 6}
	for i, w := range want {
		if table.RowNumbers[i] != w {
			t.Fatalf("row numbers = %v, want %v", table.RowNumbers, want)
		}
	}
	if table.Rows[1][2] != "Multi\nline" {
		t.Fatalf("quoted field = %q", table.Rows[1][2])
	}
	if len(table.Rows[2]) != 2 {
		t.Fatalf("short row should be kept as is: %v", table.Rows[2])
	}
}

func TestParseDelimiterAndHeaderRows(t *testing.T) {
	in := "PO;;PO Value\nNumber;Brand;- LC\nP1;Acme;12,5\n"
	table, err := Parse(strings.NewReader(in), Settings{Delimiter: "semicolon", HeaderRows: 2})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []string{"PO Number", "Brand", "PO Value - LC"}
	for i, w := range want {
		if table.Headers[i] != w {
			t.Fatalf("headers = %q, want %q", table.Headers, want)
		}
	}
	if table.Rows[0][2] != "12,5" {
		t.Fatalf("cell = %q", table.Rows[0][2])
	}
}

func TestParseGBK(t *testing.T) {
	encoded, err := simplifiedchinese.GBK.NewEncoder().String("PO Number\tBrand\nP1\t品牌\n")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	table, err := Parse(strings.NewReader(encoded), Settings{Delimiter: "tab", Encoding: "gbk"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if table.Rows[0][1] != "品牌" {
		t.Fatalf("decoded = %q", table.Rows[0][1])
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse(strings.NewReader(""), DefaultSettings()); err != ErrEmpty {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	if _, err := Parse(strings.NewReader("a"), Settings{Encoding: "EBCDIC"}); err == nil {
		t.Fatal("expected unsupported encoding error")
	}
	if _, err := Delimiter("::"); err == nil {
		t.Fatal("expected invalid delimiter error")
	}
}
