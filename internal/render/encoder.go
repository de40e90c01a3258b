package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/png"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

var (
	ErrUnknownFormat  = errors.New("unknown frame format")
	ErrFFmpegNotFound = errors.New("ffmpeg not found in PATH")
)

// Encoder consumes frames in order. Close finishes the output.
type Encoder interface {
	Add(frame *image.Paletted) error
	Close() error
}

// NewEncoder returns the encoder for format: "ppm" writes %d.ppm files
// into dir, "gif" writes dir/simulation.gif, "video" writes dir/video.mp4.
func NewEncoder(format, dir string, logger *log.Logger) (Encoder, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	switch format {
	case "ppm":
		return &PPMSequence{Dir: dir}, nil
	case "gif":
		return &GIFEncoder{Path: filepath.Join(dir, "simulation.gif"), Delay: 2}, nil
	case "video":
		v, err := NewVideoEncoder(dir, filepath.Join(dir, "video.mp4"), logger)
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// SaveFrame writes a single frame, choosing the format from the file
// extension (.ppm, .png or .gif).
func SaveFrame(path string, frame *image.Paletted) error {
	var encode func(io.Writer, image.Image) error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".ppm":
		encode = WritePPM
	case ".png":
		encode = png.Encode
	case ".gif":
		encode = func(w io.Writer, img image.Image) error { return gif.Encode(w, img, nil) }
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return encode(f, frame)
}

// PPMSequence writes each frame to Dir/<n>.ppm, n counting from zero.
type PPMSequence struct {
	Dir string
	n   int
}

func (s *PPMSequence) Add(frame *image.Paletted) error {
	f, err := os.Create(filepath.Join(s.Dir, strconv.Itoa(s.n)+".ppm"))
	if err != nil {
		return err
	}
	defer f.Close()

	if err := WritePPM(f, frame); err != nil {
		return err
	}
	s.n++
	return nil
}

func (s *PPMSequence) Close() error { return nil }

// Frames reports how many frames have been written.
func (s *PPMSequence) Frames() int { return s.n }

// GIFEncoder buffers frames and writes a looping animation on Close.
// Delay is in hundredths of a second.
type GIFEncoder struct {
	Path  string
	Delay int
	anim  gif.GIF
}

func (g *GIFEncoder) Add(frame *image.Paletted) error {
	g.anim.Image = append(g.anim.Image, frame)
	g.anim.Delay = append(g.anim.Delay, g.Delay)
	return nil
}

func (g *GIFEncoder) Frames() int { return len(g.anim.Image) }

func (g *GIFEncoder) Close() error {
	if len(g.anim.Image) == 0 {
		return nil
	}
	f, err := os.Create(g.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gif.EncodeAll(f, &g.anim)
}

// VideoEncoder stages frames as numbered PNGs and hands them to ffmpeg on
// Close. Staged frames are removed after a successful encode.
type VideoEncoder struct {
	Dir       string
	Output    string
	Framerate int
	CRF       int
	KeepPNG   bool

	ffmpeg string
	logger *log.Logger
	n      int
}

func NewVideoEncoder(dir, output string, logger *log.Logger) (*VideoEncoder, error) {
	bin, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, ErrFFmpegNotFound
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &VideoEncoder{
		Dir:       dir,
		Output:    output,
		Framerate: 30,
		CRF:       22,
		ffmpeg:    bin,
		logger:    logger,
	}, nil
}

func (v *VideoEncoder) Add(frame *image.Paletted) error {
	f, err := os.Create(v.framePath(v.n))
	if err != nil {
		return err
	}
	defer f.Close()

	if err := png.Encode(f, frame); err != nil {
		return err
	}
	v.n++
	return nil
}

func (v *VideoEncoder) framePath(i int) string {
	return filepath.Join(v.Dir, strconv.Itoa(i)+".png")
}

// Args returns the ffmpeg argument list used by Close.
func (v *VideoEncoder) Args() []string {
	return []string{
		"-y",
		"-f", "image2",
		"-framerate", strconv.Itoa(v.Framerate),
		"-i", filepath.Join(v.Dir, "%d.png"),
		"-vcodec", "libx264",
		"-crf", strconv.Itoa(v.CRF),
		v.Output,
	}
}

func (v *VideoEncoder) Close() error {
	return v.CloseContext(context.Background())
}

func (v *VideoEncoder) CloseContext(ctx context.Context) error {
	if v.n == 0 {
		return nil
	}

	cmd := exec.CommandContext(ctx, v.ffmpeg, v.Args()...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, lastLine(out))
	}
	v.logger.Debug("video encoded", "output", v.Output, "frames", v.n)

	if v.KeepPNG {
		return nil
	}
	for i := 0; i < v.n; i++ {
		if err := os.Remove(v.framePath(i)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func lastLine(b []byte) string {
	end := len(b)
	for end > 0 && (b[end-1] == '\n' || b[end-1] == '\r') {
		end--
	}
	start := end
	for start > 0 && b[start-1] != '\n' {
		start--
	}
	return string(b[start:end])
}
