package tensor

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// The archive is a whitespace-separated token stream, mirroring the portable
// text format of the system this package reimplements. Every record starts
// with a version integer so the format can evolve without breaking old
// archives.
const tensorVersion = 1

// WriteTo serializes the tensor as version, rows, cols, element count and the
// elements in row-major order. Floats use the shortest representation that
// round-trips exactly.
func (t *Tensor) WriteTo(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%d %d %d %d\n", tensorVersion, t.Rows, t.Cols, len(t.Data)); err != nil {
		return err
	}
	for i, v := range t.Data {
		sep := " "
		if i == len(t.Data)-1 || (i+1)%16 == 0 {
			sep = "\n"
		}
		if _, err := io.WriteString(w, strconv.FormatFloat(v, 'g', -1, 64)+sep); err != nil {
			return err
		}
	}
	if len(t.Data) == 0 {
		_, err := io.WriteString(w, "\n")
		return err
	}
	return nil
}

// ReadTensor deserializes a tensor written by WriteTo.
func ReadTensor(s *Scanner) (*Tensor, error) {
	version, err := s.Int()
	if err != nil {
		return nil, fmt.Errorf("tensor header: %w", err)
	}
	if version != tensorVersion {
		return nil, fmt.Errorf("unsupported tensor version %d", version)
	}
	rows, err := s.Int()
	if err != nil {
		return nil, fmt.Errorf("tensor rows: %w", err)
	}
	cols, err := s.Int()
	if err != nil {
		return nil, fmt.Errorf("tensor cols: %w", err)
	}
	n, err := s.Int()
	if err != nil {
		return nil, fmt.Errorf("tensor element count: %w", err)
	}
	if n != rows*cols {
		return nil, fmt.Errorf("tensor element count %d does not match %dx%d", n, rows, cols)
	}
	t := New(rows, cols)
	for i := 0; i < n; i++ {
		v, err := s.Float()
		if err != nil {
			return nil, fmt.Errorf("tensor element %d: %w", i, err)
		}
		t.Data[i] = v
	}
	return t, nil
}

// Scanner reads whitespace-separated tokens from an archive stream.
type Scanner struct {
	s *bufio.Scanner
}

func NewScanner(r io.Reader) *Scanner {
	s := bufio.NewScanner(r)
	s.Split(bufio.ScanWords)
	s.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &Scanner{s: s}
}

func (s *Scanner) token() (string, error) {
	if !s.s.Scan() {
		if err := s.s.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return s.s.Text(), nil
}

func (s *Scanner) Int() (int, error) {
	tok, err := s.token()
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(tok)
}

func (s *Scanner) Float() (float64, error) {
	tok, err := s.token()
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(tok, 64)
}

// String reads a quoted string written with WriteString. Embedded spaces are
// handled by accumulating tokens until the closing quote.
func (s *Scanner) String() (string, error) {
	tok, err := s.token()
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(tok, `"`) {
		return "", fmt.Errorf("expected quoted string, got %q", tok)
	}
	for !closesQuote(tok) {
		next, err := s.token()
		if err != nil {
			return "", err
		}
		tok += " " + next
	}
	return strconv.Unquote(tok)
}

func closesQuote(tok string) bool {
	if len(tok) < 2 || !strings.HasSuffix(tok, `"`) {
		return false
	}
	// Count trailing backslashes before the final quote.
	n := 0
	for i := len(tok) - 2; i >= 0 && tok[i] == '\\'; i-- {
		n++
	}
	return n%2 == 0
}

// WriteString writes a quoted string token.
func WriteString(w io.Writer, v string) error {
	_, err := io.WriteString(w, strconv.Quote(v)+"\n")
	return err
}
