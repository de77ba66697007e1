package categories

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseList(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"['beauty','skincare']", []string{"beauty", "skincare"}},
		{`  [ "home" , 'kitchen', ]  `, []string{"home", "kitchen"}},
		{"[]", []string{}},
		{`['it\'s', "say \"hi\""]`, []string{"it's", `say "hi"`}},
		{`['a\\b']`, []string{`a\b`}},
		{"['bath & body']", []string{"bath & body"}},
		{`['tea\xa0time', 'mug']`, []string{"tea\u00a0time", "mug"}},
		{`['a\rb', 'c\td']`, []string{"a\rb", "c\td"}},
		{`['zero\u200bwidth']`, []string{"zero\u200bwidth"}},
		{`['emoji \U0001f600']`, []string{"emoji \U0001f600"}},
		{`['bell\x07', 'nul\0']`, []string{"bell\a", "nul\x00"}},
	}
	for _, c := range cases {
		got, err := ParseList(c.in)
		if err != nil {
			t.Fatalf("ParseList(%q): %v", c.in, err)
		}
		if !reflect.DeepEqual(got, c.want) {
			t.Fatalf("ParseList(%q) = %#v, want %#v", c.in, got, c.want)
		}
	}
}

func TestParseListRejects(t *testing.T) {
	for _, in := range []string{
		"beauty",
		"'beauty'",
		"[beauty]",
		"['a' 'b']",
		"['a'",
		"['a'] extra",
		"[1, 2]",
		"['unterminated]",
		`['bad \x escape']`,
		`['short \u12']`,
		`['\U00110000']`,
		`['\d']`,
		"['ok', 3.5]",
		"['ok', None]",
		"__import__('os')",
	} {
		_, err := ParseList(in)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("ParseList(%q): expected *ParseError, got %v", in, err)
		}
	}
}

func TestCount(t *testing.T) {
	tags, err := Count([]string{
		"['beauty','skincare']",
		"",
		"['home']",
		"['beauty','home']",
		"['skincare','beauty']",
	})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	want := []Tag{{"beauty", 3}, {"skincare", 2}, {"home", 2}}
	if !reflect.DeepEqual(tags, want) {
		t.Fatalf("Count = %+v, want %+v", tags, want)
	}
	if got := Top(tags, 1); len(got) != 1 || got[0].Name != "beauty" {
		t.Fatalf("Top: %+v", got)
	}
}

func TestCountReportsRow(t *testing.T) {
	_, err := Count([]string{"['ok']", "not a list"})
	var ce *CellError
	if !errors.As(err, &ce) || ce.Row != 1 {
		t.Fatalf("expected CellError for row 1, got %v", err)
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("CellError should unwrap to ParseError")
	}
}
