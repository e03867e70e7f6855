package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAlignText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		width    int
		align    Alignment
		expected string
	}{
		{"left", "hello", 10, AlignLeft, "hello     "},
		{"right", "hello", 10, AlignRight, "     hello"},
		{"center", "hello", 10, AlignCenter, "  hello   "},
		{"center odd", "hi", 7, AlignCenter, "  hi   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := AlignText(tt.text, tt.width, tt.align)
			if result != tt.expected {
				t.Errorf("got %q, expected %q", result, tt.expected)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		width    int
		expected string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"hi", 2, "hi"},
		{"hello", 3, "hel"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := Truncate(tt.input, tt.width)
			if result != tt.expected {
				t.Errorf("Truncate(%q, %d) = %q, expected %q",
					tt.input, tt.width, result, tt.expected)
			}
		})
	}
}

func TestCanvas(t *testing.T) {
	c := NewCanvas(10, 5)

	if c.Width() != 10 || c.Height() != 5 {
		t.Errorf("wrong dimensions: got %dx%d, expected 10x5", c.Width(), c.Height())
	}

	c.Set(0, 0, 'X', Style{})
	if c.Get(0, 0).Rune != 'X' {
		t.Error("Set/Get failed")
	}

	c.Set(-1, 0, 'Y', Style{})
	c.Set(100, 0, 'Y', Style{})
	if c.Get(-1, 0).Rune != ' ' {
		t.Error("out of bounds Set should be ignored")
	}
}

func TestCanvasSetStyle(t *testing.T) {
	c := NewCanvas(10, 2)
	c.WriteString(0, 0, "word", Style{})
	c.SetStyle(1, 0, Style{Italic: true})

	if !c.Get(1, 0).Style.Italic {
		t.Error("SetStyle should restyle the cell")
	}
	if c.Get(1, 0).Rune != 'o' {
		t.Error("SetStyle should keep the rune")
	}
	c.SetStyle(-1, 5, Style{Bold: true}) // out of bounds is a no-op
}

func TestEnterAltScreenHomesCursor(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	EnterAltScreen(f)

	data, err := os.ReadFile(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	if !strings.HasSuffix(got, CursorHome) {
		t.Errorf("got %q, expected cursor homed after clearing", got)
	}
	if !strings.Contains(got, AltScreenEnter) {
		t.Errorf("got %q, expected alt screen switch", got)
	}
}

func TestDimAll(t *testing.T) {
	c := NewCanvas(6, 2)
	c.WriteString(0, 0, "page", Style{Bold: true})

	c.DimAll()

	cell := c.Get(0, 0)
	if !cell.Style.Dim {
		t.Error("cell not dimmed")
	}
	if cell.Style.Bold {
		t.Error("bold should be cleared when dimming")
	}
	if cell.Rune != 'p' {
		t.Errorf("dimming changed the rune to %q", cell.Rune)
	}
}

func TestDrawBoxCorners(t *testing.T) {
	tests := []struct {
		name        string
		box         BoxStyle
		topLeft     rune
		bottomRight rune
	}{
		{"single", SingleBox, '┌', '┘'},
		{"rounded", RoundedBox, '╭', '╯'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCanvas(8, 4)
			c.DrawBox(0, 0, 8, 4, tt.box, Style{})
			if got := c.Get(0, 0).Rune; got != tt.topLeft {
				t.Errorf("top left = %q, expected %q", got, tt.topLeft)
			}
			if got := c.Get(7, 3).Rune; got != tt.bottomRight {
				t.Errorf("bottom right = %q, expected %q", got, tt.bottomRight)
			}
			if got := c.Get(1, 1).Rune; got != ' ' {
				t.Errorf("interior cell = %q, expected untouched space", got)
			}
		})
	}
}

func TestStyleSequence(t *testing.T) {
	tests := []struct {
		name     string
		style    Style
		expected string
	}{
		{"plain resets", Style{}, "\033[0m"},
		{"bold", Style{Bold: true}, "\033[0;1m"},
		{"dim", Style{Dim: true}, "\033[0;2m"},
		{"italic", Style{Italic: true}, "\033[0;3m"},
		{"bold italic", Style{Bold: true, Italic: true}, "\033[0;1;3m"},
		{"reverse", Style{Reverse: true}, "\033[0;7m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := styleSequence(tt.style); got != tt.expected {
				t.Errorf("got %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestPlainText(t *testing.T) {
	c := NewCanvas(12, 3)
	c.WriteString(0, 0, "first line", Style{Bold: true})
	c.WriteString(0, 1, "second", Style{})

	expected := "first line\nsecond\n"
	if got := c.PlainText(); got != expected {
		t.Errorf("got %q, expected %q", got, expected)
	}
	if strings.Contains(c.PlainText(), "\033") {
		t.Error("plain text should not contain escape sequences")
	}
}
