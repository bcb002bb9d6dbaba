package render

import "testing"

func TestRenderReplacesAllOccurrences(t *testing.T) {
	got := Render("Hi {{name}}, bye {{name}}", map[string]string{"name": "Bob"})
	if got != "Hi Bob, bye Bob" {
		t.Errorf("Render = %q, want %q", got, "Hi Bob, bye Bob")
	}
}

func TestRenderLeavesUnknownKeysUntouched(t *testing.T) {
	in := "Hello {{user_name}}, your plan is {{plan}}"
	got := Render(in, map[string]string{"user_name": "Alice"})
	want := "Hello Alice, your plan is {{plan}}"
	if got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}
}

func TestRenderEmptyVars(t *testing.T) {
	in := "Nothing {{here}} changes"
	if got := Render(in, nil); got != in {
		t.Errorf("Render with nil vars = %q, want input unchanged", got)
	}
	if got := Render(in, map[string]string{}); got != in {
		t.Errorf("Render with empty vars = %q, want input unchanged", got)
	}
}

func TestRenderEmptyValue(t *testing.T) {
	got := Render("Hi {{name}}!", map[string]string{"name": ""})
	if got != "Hi !" {
		t.Errorf("Render = %q, want %q", got, "Hi !")
	}
}

func TestRenderIdempotent(t *testing.T) {
	vars := map[string]string{"user_name": "Carol", "company": "LynixDevs"}
	tmpl := "Dear {{user_name}}, welcome to {{company}}. The {{company}} team"

	once := Render(tmpl, vars)
	twice := Render(once, vars)
	if once != twice {
		t.Errorf("rendering twice changed output: %q vs %q", once, twice)
	}
}

func TestStripTags(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"<p>Hello <strong>Bob</strong></p>", "Hello Bob"},
		{"no markup at all", "no markup at all"},
		{"<a href=\"https://lynixdevs.us\">link</a>", "link"},
		{"  <br/> spaced ", "spaced"},
	}
	for _, c := range cases {
		if got := StripTags(c.in); got != c.want {
			t.Errorf("StripTags(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
