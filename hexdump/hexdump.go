// Package hexdump renders byte ranges read out of an image, such as the PE
// header block, as colored hex and ASCII columns.
package hexdump

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/Moonlight-Companies/gologger/coloransi"
)

// Options controls the layout of a dump
type Options struct {
	// BytesPerLine defines the number of bytes to display per line
	BytesPerLine int

	// StartAddress is printed in the address column for the first byte
	StartAddress uint64

	// AddressWidth is the width of the address column in hex digits
	AddressWidth int

	// Highlight marks every occurrence of these byte patterns
	Highlight [][]byte

	// MaxLines is the maximum number of lines to show (0 for no limit)
	MaxLines int

	// Plain disables ANSI colors
	Plain bool
}

// DefaultOptions returns 16 bytes per line with a 16 digit address column
func DefaultOptions() Options {
	return Options{
		BytesPerLine: 16,
		AddressWidth: 16,
	}
}

// Dump creates a hex dump of the given data with specified options
func Dump(data []byte, options Options) string {
	var buffer bytes.Buffer
	DumpToWriter(&buffer, data, options)
	return buffer.String()
}

// DumpToWriter writes a hex dump of the given data to the specified writer
func DumpToWriter(writer io.Writer, data []byte, options Options) {
	if options.BytesPerLine <= 0 {
		options.BytesPerLine = 16
	}
	if options.AddressWidth <= 0 {
		options.AddressWidth = 16
	}

	marked := highlighted(data, options.Highlight)

	lineCount := 0
	for offset := 0; offset < len(data); offset += options.BytesPerLine {
		if options.MaxLines > 0 && lineCount >= options.MaxLines {
			fmt.Fprintf(writer, "... %d more bytes\n", len(data)-offset)
			break
		}

		end := min(offset+options.BytesPerLine, len(data))
		formatLine(writer, data[offset:end], marked[offset:end], options.StartAddress+uint64(offset), options)
		lineCount++
	}
}

// highlighted flags each byte covered by an occurrence of any pattern
func highlighted(data []byte, patterns [][]byte) []bool {
	marked := make([]bool, len(data))
	for _, pattern := range patterns {
		if len(pattern) == 0 {
			continue
		}
		for start := 0; ; {
			i := bytes.Index(data[start:], pattern)
			if i < 0 {
				break
			}
			for j := start + i; j < start+i+len(pattern); j++ {
				marked[j] = true
			}
			start += i + 1
		}
	}
	return marked
}

func formatLine(writer io.Writer, data []byte, marked []bool, address uint64, options Options) {
	paint := func(fg coloransi.ColorCode, s string) string {
		if options.Plain {
			return s
		}
		return coloransi.Foreground(fg, s)
	}
	mark := func(s string) string {
		if options.Plain {
			return s
		}
		return coloransi.Color(coloransi.Yellow, coloransi.Black, s)
	}

	fmt.Fprint(writer, paint(coloransi.Cyan, fmt.Sprintf("%0*x", options.AddressWidth, address)), "  ")

	half := options.BytesPerLine / 2
	for i := 0; i < options.BytesPerLine; i++ {
		if i == half && options.BytesPerLine >= 8 {
			fmt.Fprint(writer, " ")
		}
		if i >= len(data) {
			fmt.Fprint(writer, "   ")
			continue
		}

		hex := fmt.Sprintf("%02x", data[i])
		switch {
		case marked[i]:
			hex = mark(hex)
		case data[i] == 0:
			hex = paint(coloransi.BrightBlack, hex)
		default:
			hex = paint(coloransi.Green, hex)
		}
		fmt.Fprint(writer, hex, " ")
	}

	fmt.Fprint(writer, "|")
	var ascii strings.Builder
	for i, b := range data {
		c := "."
		if b != 0 && b < unicode.MaxASCII && unicode.IsPrint(rune(b)) {
			c = string(rune(b))
		}
		switch {
		case marked[i]:
			ascii.WriteString(mark(c))
		case c == ".":
			ascii.WriteString(paint(coloransi.BrightBlack, c))
		default:
			ascii.WriteString(c)
		}
	}
	fmt.Fprintln(writer, ascii.String()+"|")
}
