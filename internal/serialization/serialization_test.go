package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"io"
	"testing"

	"github.com/born-ml/volnet/internal/nn"
	"github.com/born-ml/volnet/internal/optim"
	"github.com/born-ml/volnet/internal/stats"
	"github.com/born-ml/volnet/internal/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestChecksum_KnownVector verifies the body digest is plain SHA-256 and
// that the streaming digest agrees with it.
func TestChecksum_KnownVector(t *testing.T) {
	sum := Checksum([]byte("hello world"))
	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", hex.EncodeToString(sum[:]))

	d := newBodyDigest()
	_, err := d.Write([]byte("hello "))
	require.NoError(t, err)
	_, err = d.Write([]byte("world"))
	require.NoError(t, err)
	assert.NoError(t, d.verify(sum))
	assert.ErrorIs(t, d.verify([ChecksumSize]byte{1}), ErrChecksumMismatch)
}

// TestContainer_HeaderSize verifies that a header claiming more body than
// the stream holds fails as a truncation, and that sizes beyond
// MaxBodySize are refused before any body is read.
func TestContainer_HeaderSize(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteContainer(&buf, KindVolume, []byte{1, 2, 3}))

	lying := append([]byte(nil), buf.Bytes()...)
	binary.LittleEndian.PutUint64(lying[12:], MaxBodySize)
	_, _, err := ReadContainer(bytes.NewReader(lying))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	huge := append([]byte(nil), buf.Bytes()...)
	binary.LittleEndian.PutUint64(huge[12:], MaxBodySize+1)
	_, _, err = ReadContainer(bytes.NewReader(huge))
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestContainer_RoundTrip(t *testing.T) {
	body := []byte("payload")
	var buf bytes.Buffer
	require.NoError(t, WriteContainer(&buf, KindSession, body))
	assert.Equal(t, FixedHeaderSize+len(body)+ChecksumSize, buf.Len())

	kind, got, err := ReadContainer(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, KindSession, kind)
	assert.Equal(t, body, got)

	_, err = ReadKind(bytes.NewReader(buf.Bytes()), KindBrain)
	assert.ErrorIs(t, err, ErrUnexpectedKind)
}

func TestContainer_Corruption(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteContainer(&buf, KindVolume, []byte{1, 2, 3, 4}))
	good := buf.Bytes()

	flipped := append([]byte(nil), good...)
	flipped[FixedHeaderSize+1] ^= 0xff
	_, _, err := ReadContainer(bytes.NewReader(flipped))
	assert.ErrorIs(t, err, ErrChecksumMismatch)

	badMagic := append([]byte(nil), good...)
	copy(badMagic, "BORN")
	_, _, err = ReadContainer(bytes.NewReader(badMagic))
	assert.ErrorIs(t, err, ErrInvalidMagic)

	badVersion := append([]byte(nil), good...)
	badVersion[4] = 9
	_, _, err = ReadContainer(bytes.NewReader(badVersion))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, _, err = ReadContainer(bytes.NewReader(good[:len(good)-5]))
	assert.Error(t, err)
}

func TestRecord_Fields(t *testing.T) {
	var inner Record
	inner.PutString(1, "nested")

	var r Record
	r.PutUint(1, 42)
	r.PutInt(2, -7)
	r.PutBool(3, true)
	r.PutFloat(4, -0.25)
	r.PutFloats(5, []float64{1, 2.5, -3})
	r.PutInts(6, []int{-1, 0, 300})
	r.PutRecord(7, &inner)
	r.PutRecord(8, &inner)
	r.PutRecord(8, &inner)
	r.PutFloats(9, nil)

	f, err := Parse(r.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), f.Uint(1))
	assert.Equal(t, -7, f.Int(2))
	assert.True(t, f.Bool(3))
	assert.Equal(t, -0.25, f.Float(4))
	assert.Equal(t, []float64{1, 2.5, -3}, f.Floats(5))
	assert.Equal(t, []int{-1, 0, 300}, f.Ints(6))
	assert.Equal(t, "nested", f.Record(7).String(1))
	assert.Len(t, f.Records(8), 2)
	assert.Empty(t, f.Floats(9))
	assert.NoError(t, f.Err())
}

func TestRecord_MissingAndMistyped(t *testing.T) {
	var r Record
	r.PutFloat(1, 3)

	f, err := Parse(r.Bytes())
	require.NoError(t, err)
	assert.Zero(t, f.Int(1), "fixed64 read as varint")
	assert.ErrorIs(t, f.Err(), ErrMalformedRecord)

	f, err = Parse(r.Bytes())
	require.NoError(t, err)
	f.Record(5).Int(1)
	var fe *FieldError
	require.True(t, errors.As(f.Err(), &fe))
	assert.Equal(t, int32(5), fe.Field)

	_, err = Parse([]byte{0x0a, 0x05, 0x01})
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestVolume_RoundTrip(t *testing.T) {
	v := volume.New(2, 3, 2)
	for i := 0; i < v.Len(); i++ {
		v.SetAt(i, float64(i)*0.5)
		v.SetGradientAt(i, -float64(i))
	}

	var r Record
	PutVolume(&r, 1, v)
	PutVolumes(&r, 2, []*volume.Volume{v, volume.NewFilled(1, 1, 3, 7)})

	var buf bytes.Buffer
	require.NoError(t, WriteContainer(&buf, KindVolume, r.Bytes()))
	body, err := ReadKind(&buf, KindVolume)
	require.NoError(t, err)

	f, err := Parse(body)
	require.NoError(t, err)
	got := GetVolume(f, 1)
	vs := GetVolumes(f, 2)
	require.NoError(t, f.Err())

	assert.Equal(t, [3]int{2, 3, 2}, [3]int{got.Width(), got.Height(), got.Depth()})
	assert.Equal(t, v.Weights(), got.Weights())
	assert.Equal(t, v.Gradients(), got.Gradients())
	require.Len(t, vs, 2)
	assert.Equal(t, []float64{7, 7, 7}, vs[1].Weights())
}

func TestVolume_BadDimensions(t *testing.T) {
	var sub Record
	sub.PutInt(volWidth, 2)
	sub.PutInt(volHeight, 2)
	sub.PutInt(volDepth, 1)
	sub.PutFloats(volWeights, []float64{1, 2, 3})
	sub.PutFloats(volGradients, []float64{0, 0, 0})
	var r Record
	r.PutRecord(1, &sub)

	f, err := Parse(r.Bytes())
	require.NoError(t, err)
	assert.Nil(t, GetVolume(f, 1))
	assert.ErrorIs(t, f.Err(), ErrMalformedRecord)
}

func TestWindow_RoundTrip(t *testing.T) {
	w := stats.NewWindow(4, 2)
	for _, x := range []float64{1, 2, 3, 4, 5} {
		w.Add(x)
	}
	var r Record
	PutWindow(&r, 3, w)

	f, err := Parse(r.Bytes())
	require.NoError(t, err)
	got := GetWindow(f, 3)
	require.NoError(t, f.Err())
	assert.Equal(t, w.Values(), got.Values())
	assert.Equal(t, w.Average(), got.Average())
	assert.Equal(t, 2, got.MinSize())
}

type oneParam struct{ v *volume.Volume }

func (p oneParam) ParametersAndGradients() []nn.ParametersAndGradients {
	return []nn.ParametersAndGradients{{Volume: p.v}}
}

func TestTrainer_RoundTrip(t *testing.T) {
	cfg := optim.Config{Method: optim.Adadelta, BatchSize: 2, L2Decay: 0.01}
	tr := optim.New(cfg)
	src := oneParam{volume.NewFilled(1, 1, 2, 1)}
	tr.Bind(src)
	for i := 0; i < 4; i++ {
		src.v.SetGradientAt(0, 0.3)
		_, err := tr.Step(0)
		require.NoError(t, err)
	}

	var r Record
	PutTrainer(&r, 1, tr)
	f, err := Parse(r.Bytes())
	require.NoError(t, err)
	gotCfg, gotState := GetTrainer(f, 1)
	require.NoError(t, f.Err())

	assert.Equal(t, tr.Config(), gotCfg)
	assert.Equal(t, tr.State(), gotState)

	restored := optim.New(gotCfg)
	restored.Bind(src)
	require.NoError(t, restored.LoadState(gotState))
	assert.Equal(t, 4, restored.IterCount())
}
