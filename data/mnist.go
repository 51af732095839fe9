package data

import (
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mkowalik/gradnet/tensor"
)

// IDX magic numbers for the MNIST image and label files.
const (
	imagesMagic = 2051
	labelsMagic = 2049
)

// MNISTLoader reads the IDX-format MNIST files from a directory. Both the
// raw files and their .gz forms are accepted.
type MNISTLoader struct {
	Dir string
}

func NewMNISTLoader(dir string) *MNISTLoader {
	return &MNISTLoader{Dir: dir}
}

// Load returns xTrain, yTrain, xTest, yTest. Images come out as
// (784, samples) tensors with pixel values scaled to [0, 1]; labels as
// one-hot (10, samples) tensors.
func (m *MNISTLoader) Load() (*tensor.Tensor, *tensor.Tensor, *tensor.Tensor, *tensor.Tensor, error) {
	xTrain, err := m.loadImages("train-images-idx3-ubyte")
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to load train images: %w", err)
	}
	trainLabels, err := m.loadLabels("train-labels-idx1-ubyte")
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to load train labels: %w", err)
	}
	xTest, err := m.loadImages("t10k-images-idx3-ubyte")
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to load test images: %w", err)
	}
	testLabels, err := m.loadLabels("t10k-labels-idx1-ubyte")
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to load test labels: %w", err)
	}

	return xTrain, OneHotEncode(trainLabels, 10), xTest, OneHotEncode(testLabels, 10), nil
}

// open finds name or name.gz under the configured directory and wraps the
// gzip decoder when needed.
func (m *MNISTLoader) open(name string) (io.ReadCloser, error) {
	path := filepath.Join(m.Dir, name)
	if _, err := os.Stat(path); err != nil {
		path += ".gz"
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	return &gzipFile{gz: gz, f: f}, nil
}

type gzipFile struct {
	gz *gzip.Reader
	f  *os.File
}

func (g *gzipFile) Read(p []byte) (int, error) {
	return g.gz.Read(p)
}

func (g *gzipFile) Close() error {
	g.gz.Close()
	return g.f.Close()
}

func (m *MNISTLoader) loadImages(name string) (*tensor.Tensor, error) {
	r, err := m.open(name)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var magic, numImages, numRows, numCols int32
	for _, v := range []*int32{&magic, &numImages, &numRows, &numCols} {
		if err := binary.Read(r, binary.BigEndian, v); err != nil {
			return nil, fmt.Errorf("failed to read image header: %w", err)
		}
	}
	if magic != imagesMagic {
		return nil, fmt.Errorf("invalid magic number for images: %d", magic)
	}

	imageSize := int(numRows * numCols)
	out := tensor.New(imageSize, int(numImages))
	buf := make([]byte, imageSize)
	for i := 0; i < int(numImages); i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("failed to read image %d: %w", i, err)
		}
		for p, b := range buf {
			out.Set(p, i, float64(b)/255.0)
		}
	}
	return out, nil
}

func (m *MNISTLoader) loadLabels(name string) ([]int, error) {
	r, err := m.open(name)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var magic, numLabels int32
	for _, v := range []*int32{&magic, &numLabels} {
		if err := binary.Read(r, binary.BigEndian, v); err != nil {
			return nil, fmt.Errorf("failed to read label header: %w", err)
		}
	}
	if magic != labelsMagic {
		return nil, fmt.Errorf("invalid magic number for labels: %d", magic)
	}

	buf := make([]byte, numLabels)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	labels := make([]int, numLabels)
	for i, b := range buf {
		labels[i] = int(b)
	}
	return labels, nil
}
