package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/gif"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/geom"
)

var unit = geom.NewBounds(0, 0, 1, 1)

func TestRasterizePlacement(t *testing.T) {
	g := NewWithT(t)
	pts := []geom.Point{
		geom.NewPoint(0, 0.05, 0.05),
		geom.NewPoint(1, 0.95, 0.55),
		geom.NewPoint(2, 1.5, 0.5), // outside
	}
	img := Rasterize(pts, unit, 10)

	g.Expect(img.Bounds()).To(Equal(image.Rect(0, 0, 10, 10)))
	g.Expect(img.ColorIndexAt(0, 0)).To(Equal(uint8(255)))
	g.Expect(img.ColorIndexAt(9, 5)).To(Equal(uint8(255)))

	lit := 0
	for _, px := range img.Pix {
		if px != 0 {
			lit++
		}
	}
	g.Expect(lit).To(Equal(2))
}

func TestRasterizeBrightnessBySpeed(t *testing.T) {
	g := NewWithT(t)
	slow := geom.Point{ID: 0, X: 0.1, Y: 0.1}
	fast := geom.Point{ID: 1, X: 0.9, Y: 0.9, VX: 2}
	img := Rasterize([]geom.Point{slow, fast}, unit, 4)

	g.Expect(img.ColorIndexAt(0, 0)).To(Equal(uint8(minLevel)))
	g.Expect(img.ColorIndexAt(3, 3)).To(Equal(uint8(255)))
}

func TestRasterizeKeepsBrightest(t *testing.T) {
	g := NewWithT(t)
	pts := []geom.Point{
		{ID: 0, X: 0.1, Y: 0.1, VX: 1},
		{ID: 1, X: 0.11, Y: 0.11},
	}
	img := Rasterize(pts, unit, 2)
	g.Expect(img.ColorIndexAt(0, 0)).To(Equal(uint8(255)))
}

func TestWritePPM(t *testing.T) {
	g := NewWithT(t)
	img := Rasterize([]geom.Point{geom.NewPoint(0, 0.9, 0.1)}, unit, 2)

	var buf bytes.Buffer
	g.Expect(WritePPM(&buf, img)).To(Succeed())

	header := "P6\n2 2\n255\n"
	g.Expect(buf.String()).To(HavePrefix(header))
	body := buf.Bytes()[len(header):]
	g.Expect(body).To(HaveLen(12))
	// pixel (1,0) is lit
	g.Expect(body[3:6]).To(Equal([]byte{255, 255, 255}))
	g.Expect(body[0:3]).To(Equal([]byte{0, 0, 0}))
}

func TestPPMSequence(t *testing.T) {
	g := NewWithT(t)
	dir := t.TempDir()
	enc, err := NewEncoder("ppm", dir, nil)
	g.Expect(err).NotTo(HaveOccurred())

	frame := Rasterize(nil, unit, 3)
	g.Expect(enc.Add(frame)).To(Succeed())
	g.Expect(enc.Add(frame)).To(Succeed())
	g.Expect(enc.Close()).To(Succeed())

	g.Expect(filepath.Join(dir, "0.ppm")).To(BeAnExistingFile())
	g.Expect(filepath.Join(dir, "1.ppm")).To(BeAnExistingFile())
	g.Expect(filepath.Join(dir, "2.ppm")).NotTo(BeAnExistingFile())
}

func TestGIFEncoder(t *testing.T) {
	g := NewWithT(t)
	dir := t.TempDir()
	enc, err := NewEncoder("gif", dir, nil)
	g.Expect(err).NotTo(HaveOccurred())

	for i := 0; i < 3; i++ {
		g.Expect(enc.Add(Rasterize([]geom.Point{geom.NewPoint(0, 0.5, 0.5)}, unit, 8))).To(Succeed())
	}
	g.Expect(enc.Close()).To(Succeed())

	f, err := os.Open(filepath.Join(dir, "simulation.gif"))
	g.Expect(err).NotTo(HaveOccurred())
	defer f.Close()

	anim, err := gif.DecodeAll(f)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(anim.Image).To(HaveLen(3))
}

func TestNewEncoderUnknownFormat(t *testing.T) {
	_, err := NewEncoder("bmp", t.TempDir(), nil)
	if !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestVideoEncoderMissingFFmpeg(t *testing.T) {
	t.Setenv("PATH", "")
	_, err := NewVideoEncoder(t.TempDir(), "out.mp4", nil)
	if !errors.Is(err, ErrFFmpegNotFound) {
		t.Fatalf("expected ErrFFmpegNotFound, got %v", err)
	}
}

func TestVideoEncoderArgs(t *testing.T) {
	v := &VideoEncoder{Dir: "frames", Output: "video.mp4", Framerate: 30, CRF: 22}
	want := []string{"-y", "-f", "image2", "-framerate", "30", "-i", filepath.Join("frames", "%d.png"), "-vcodec", "libx264", "-crf", "22", "video.mp4"}

	g := NewWithT(t)
	g.Expect(v.Args()).To(Equal(want))
}

type countingEncoder struct{ added, closed int }

func (c *countingEncoder) Add(*image.Paletted) error { c.added++; return nil }
func (c *countingEncoder) Close() error              { c.closed++; return nil }

func TestSnapshotEvery(t *testing.T) {
	g := NewWithT(t)
	enc := &countingEncoder{}
	snap := NewSnapshot(enc, unit, 4, 3)

	for step := 0; step < 7; step++ {
		g.Expect(snap.OnStep(nil, dynamo.StepStats{Step: step})).To(Succeed())
	}
	g.Expect(snap.Close()).To(Succeed())

	// steps 0, 3, 6
	g.Expect(enc.added).To(Equal(3))
	g.Expect(snap.Frames()).To(Equal(3))
	g.Expect(enc.closed).To(Equal(1))
}

func TestSnapshotWithSimulator(t *testing.T) {
	g := NewWithT(t)
	cfg := dynamo.DefaultConfig()
	cfg.Steps = 4
	sim, err := dynamo.New(cfg, nil)
	g.Expect(err).NotTo(HaveOccurred())

	enc := &countingEncoder{}
	sim.AddObserver(NewSnapshot(enc, cfg.Domain, 16, 2))

	pts := []geom.Point{geom.NewPoint(0, -0.5, -0.5), geom.NewPoint(1, 0.5, 0.5)}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	_, err = sim.Run(ctx, pts)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(enc.added).To(Equal(2))
}

func TestSaveFrame(t *testing.T) {
	g := NewWithT(t)
	dir := t.TempDir()
	frame := Rasterize([]geom.Point{geom.NewPoint(0, 0.5, 0.5)}, unit, 4)

	for _, name := range []string{"a.ppm", "a.png", "a.gif"} {
		path := filepath.Join(dir, name)
		g.Expect(SaveFrame(path, frame)).To(Succeed())
		g.Expect(path).To(BeAnExistingFile())
	}

	err := SaveFrame(filepath.Join(dir, "a.bmp"), frame)
	g.Expect(errors.Is(err, ErrUnknownFormat)).To(BeTrue())
}
