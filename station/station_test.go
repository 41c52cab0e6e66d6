package station

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Luismorlan/qrchain/codec"
	"github.com/Luismorlan/qrchain/ledger"
	"github.com/Luismorlan/qrchain/model"
	"github.com/Luismorlan/qrchain/renderer"
	"github.com/Luismorlan/qrchain/scanner"
	"github.com/Luismorlan/qrchain/signer"
	"github.com/Luismorlan/qrchain/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey      = "mi_clave_secreta_32bytes"
	genesisHash  = "bcd09543e42ccd78fa182a8736ff1742a4ddc051a00770b1ebe77701f00cff18"
	signedSample = "eyJiYXRjaCI6IjIwMjUtMTEtMDEiLCJpc3N1ZXIiOiJGQUJSSUNBX1giLCJzZXJpYWwiOiIwMDAxIiwic2t1IjoiQUJDMTIzIn0.144Pt8I1OQFKKFXzjfOb5YINTCe2L-kstalNXUHVVBU"
)

var (
	genesisTime = time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	scanTime    = time.Date(2025, 11, 1, 8, 0, 0, 0, time.UTC)
	reading     = model.Reading{Temperature: 4.25, Humidity: 50.5, Latitude: 19.5, Longitude: -100.25}
)

type fixedSensor struct{}

func (fixedSensor) Sample() model.Reading { return reading }

type rendered struct {
	name string
	text string
}

type fakeRenderer struct {
	m    sync.Mutex
	got  []rendered
	fail error
}

func (r *fakeRenderer) Render(name string, text string) (string, error) {
	r.m.Lock()
	defer r.m.Unlock()
	r.got = append(r.got, rendered{name: name, text: text})
	if r.fail != nil {
		return "", r.fail
	}
	return "/out/" + name + ".png", nil
}

type recorder struct {
	m      sync.Mutex
	events []string
}

func (r *recorder) add(format string, args ...interface{}) {
	r.m.Lock()
	defer r.m.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) Events() []string {
	r.m.Lock()
	defer r.m.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) Waiting(time.Duration) { r.add("waiting") }
func (r *recorder) TimedOut(time.Duration) { r.add("timeout") }
func (r *recorder) Rejected(reason signer.Reason, _ error) { r.add("rejected %s", reason) }
func (r *recorder) Accepted(reason signer.Reason) { r.add("accepted %s", reason) }
func (r *recorder) Appended(_ map[string]interface{}, b model.Block, _ string) {
	r.add("appended %d", b.Index)
}
func (r *recorder) NextToken(artifact string, _ string, err error) {
	r.add("next %s %v", artifact, err)
}
func (r *recorder) Infof(format string, args ...interface{}) { r.add("info "+format, args...) }
func (r *recorder) Errorf(format string, args ...interface{}) { r.add("error "+format, args...) }

type fixture struct {
	station  *Station
	ledger   *ledger.Ledger
	verifier *signer.Verifier
	renderer *fakeRenderer
	reporter *recorder
}

func newFixture(t *testing.T, sc scanner.Scanner, requireSignature bool) *fixture {
	l := ledger.New(filepath.Join(t.TempDir(), "chain.json"),
		ledger.WithClock(func() time.Time { return genesisTime }))
	v, err := signer.NewVerifier([]byte(testKey), requireSignature)
	require.NoError(t, err)
	f := &fixture{ledger: l, verifier: v, renderer: &fakeRenderer{}, reporter: &recorder{}}
	f.station, err = New(Config{
		Ledger:      l,
		Verifier:    v,
		Scanner:     sc,
		Sensor:      fixedSensor{},
		Renderer:    f.renderer,
		Reporter:    f.reporter,
		ScanTimeout: time.Second,
		Clock:       func() time.Time { return scanTime },
	})
	require.NoError(t, err)
	return f
}

func chainLen(t *testing.T, l *ledger.Ledger) int {
	chain, err := l.Load()
	require.NoError(t, err)
	return len(chain)
}

func TestEndToEndSignedScan(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	script := scanner.NewScript(signedSample)
	script.OnExhausted = cancel
	f := newFixture(t, script, false)

	require.NoError(t, f.station.Run(ctx))
	assert.Equal(t, Stopped, f.station.State())

	chain, err := f.ledger.Load()
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, genesisHash, chain[0].Hash)

	b := chain[1]
	assert.Equal(t, int64(1), b.Index)
	assert.Equal(t, genesisHash, b.PrevHash)
	assert.Equal(t, `{"humedad_%": 50.5, "lat": 19.5, "lon": -100.25, "qr_payload": {"batch": "2025-11-01", "issuer": "FABRICA_X", "serial": "0001", "sku": "ABC123"}, "temperatura_C": 4.25, "timestamp": "2025-11-01T08:00:00Z"}`, b.Data)

	ok, err := f.ledger.VerifyChain()
	require.NoError(t, err)
	assert.True(t, ok)

	// The next token names the new block.
	require.Len(t, f.renderer.got, 1)
	assert.Equal(t, "qr_next_1", f.renderer.got[0].name)
	res := f.verifier.VerifyToken(f.renderer.got[0].text)
	require.True(t, res.Accepted)
	assert.Equal(t, signer.SignatureValid, res.Reason)
	assert.Equal(t, b.Hash, res.Payload[model.NextPrevHashKey])
	assert.Equal(t, "1", fmt.Sprint(res.Payload[model.NextIndexKey]))
	assert.Equal(t, "2025-11-01T08:00:00Z", res.Payload[model.NextIssuedAtKey])

	assert.Contains(t, f.reporter.Events(), "accepted signature_valid")
	assert.Contains(t, f.reporter.Events(), "appended 1")
	assert.Contains(t, f.reporter.Events(), "next /out/qr_next_1.png <nil>")
}

func TestNextTokenContinuesChain(t *testing.T) {
	input := scanner.NewChanScanner(1)
	f := newFixture(t, input, true)
	ctx := context.Background()
	require.NoError(t, f.station.Start())

	require.NoError(t, input.Push(ctx, signedSample))
	first, err := f.station.Cycle(ctx)
	require.NoError(t, err)
	require.Equal(t, Appended, first.Kind)

	require.NoError(t, input.Push(ctx, first.NextToken))
	second, err := f.station.Cycle(ctx)
	require.NoError(t, err)
	require.Equal(t, Appended, second.Kind)
	assert.Equal(t, int64(2), second.Block.Index)
	assert.Equal(t, first.Block.Hash, second.Block.PrevHash)

	payload, err := utils.DecodeJSONObject([]byte(second.Block.Data))
	require.NoError(t, err)
	scanned := payload[model.RecordPayloadKey].(map[string]interface{})
	assert.Equal(t, first.Block.Hash, scanned[model.NextPrevHashKey])
}

func TestMalformedTokenLeavesLedgerUntouched(t *testing.T) {
	f := newFixture(t, scanner.NewScript("not.a.valid.token"), false)
	require.NoError(t, f.station.Start())
	before, err := ioutil.ReadFile(f.ledger.Path())
	require.NoError(t, err)

	out, err := f.station.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Rejected, out.Kind)
	assert.Equal(t, signer.Malformed, out.Reason)
	assert.ErrorIs(t, out.Err, codec.ErrMalformedSignedToken)

	after, err := ioutil.ReadFile(f.ledger.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Empty(t, f.renderer.got)
	assert.Equal(t, AwaitingScan, f.station.State())
}

func TestRejections(t *testing.T) {
	v, err := signer.NewVerifier([]byte("otra_clave"), false)
	require.NoError(t, err)
	foreign, err := v.Issue(model.Payload{"sku": "ABC123"})
	require.NoError(t, err)

	cases := []struct {
		name             string
		text             string
		requireSignature bool
		reason           signer.Reason
	}{
		{"wrong key", foreign, false, signer.SignatureInvalid},
		{"unsigned when required", `{"sku":"ABC123"}`, true, signer.UnsignedRejected},
		{"json array", `["sku"]`, false, signer.Malformed},
		{"garbage", "hello world", false, signer.Malformed},
	}
	for _, tc := range cases {
		f := newFixture(t, scanner.NewScript(tc.text), tc.requireSignature)
		out, err := f.station.Cycle(context.Background())
		require.NoError(t, err, tc.name)
		assert.Equal(t, Rejected, out.Kind, tc.name)
		assert.Equal(t, tc.reason, out.Reason, tc.name)
		assert.Equal(t, 1, chainLen(t, f.ledger), tc.name)
	}
}

func TestPlainJSONAccepted(t *testing.T) {
	f := newFixture(t, scanner.NewScript(`{"sku": "ABC123", "serial": "0001"}`), false)
	out, err := f.station.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Appended, out.Kind)
	assert.Equal(t, signer.PlainJSON, out.Reason)
	assert.Equal(t, 2, chainLen(t, f.ledger))
}

func TestTimeoutIsAnOutcome(t *testing.T) {
	script := scanner.NewScript().Then(scanner.Step{Err: scanner.ErrTimeout})
	f := newFixture(t, script, false)
	out, err := f.station.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TimedOut, out.Kind)
	assert.Contains(t, f.reporter.Events(), "timeout")
}

func TestRunLoopsPastTimeoutsAndRejections(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	script := scanner.NewScript().
		Then(scanner.Step{Err: scanner.ErrTimeout}).
		Then(scanner.Step{Text: "not.a.valid.token"}).
		Then(scanner.Step{Text: signedSample})
	script.OnExhausted = cancel
	f := newFixture(t, script, false)

	require.NoError(t, f.station.Run(ctx))
	assert.Equal(t, 4, script.Calls())
	assert.Equal(t, 2, chainLen(t, f.ledger))
}

func TestWatchedOutputDirDoesNotFeedBack(t *testing.T) {
	dir := t.TempDir()
	sc, err := scanner.NewDirScanner(dir, 10*time.Millisecond)
	require.NoError(t, err)
	png, err := renderer.NewPNG(dir, 0)
	require.NoError(t, err)
	l := ledger.New(filepath.Join(t.TempDir(), "chain.json"))
	v, err := signer.NewVerifier([]byte(testKey), false)
	require.NoError(t, err)
	st, err := New(Config{
		Ledger:      l,
		Verifier:    v,
		Scanner:     sc,
		Sensor:      fixedSensor{},
		Renderer:    png,
		Reporter:    &recorder{},
		ScanTimeout: 500 * time.Millisecond,
	})
	require.NoError(t, err)
	require.NoError(t, st.Start())

	// One code presented by the operator.
	_, err = png.Render("presented", signedSample)
	require.NoError(t, err)

	ctx := context.Background()
	out, err := st.Cycle(ctx)
	require.NoError(t, err)
	require.Equal(t, Appended, out.Kind)
	assert.Equal(t, filepath.Join(dir, "qr_next_1.png"), out.Artifact)

	out, err = st.Cycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, TimedOut, out.Kind)
	assert.Equal(t, 2, chainLen(t, l))
}

func TestRenderFailureDoesNotHalt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	script := scanner.NewScript(signedSample, `{"sku":"X"}`)
	script.OnExhausted = cancel
	f := newFixture(t, script, false)
	f.renderer.fail = errors.New("disk full")

	require.NoError(t, f.station.Run(ctx))
	assert.Equal(t, 3, chainLen(t, f.ledger))
	assert.Len(t, f.renderer.got, 2)
}

func TestRenderFailureInOutcome(t *testing.T) {
	f := newFixture(t, scanner.NewScript(signedSample), false)
	f.renderer.fail = errors.New("disk full")
	out, err := f.station.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Appended, out.Kind)
	assert.EqualError(t, out.RenderErr, "disk full")
	assert.NotEmpty(t, out.NextToken)
}

func TestLedgerFailureHalts(t *testing.T) {
	f := newFixture(t, scanner.NewScript(signedSample), false)
	require.NoError(t, f.station.Start())

	// The file goes bad between startup and the append.
	require.NoError(t, ioutil.WriteFile(f.ledger.Path(), []byte("[not json"), 0644))

	err := f.station.Run(context.Background())
	assert.ErrorIs(t, err, ledger.ErrChainFileCorrupt)
	assert.Equal(t, Halted, f.station.State())

	content, rerr := ioutil.ReadFile(f.ledger.Path())
	require.NoError(t, rerr)
	assert.Equal(t, "[not json", string(content))
}

func TestStartRefusesBrokenChain(t *testing.T) {
	f := newFixture(t, scanner.NewScript(), false)
	_, err := f.ledger.InitializeIfAbsent()
	require.NoError(t, err)
	_, err = f.ledger.Append("entry")
	require.NoError(t, err)

	chain, err := f.ledger.Load()
	require.NoError(t, err)
	chain[1].Data = "forged"
	require.NoError(t, writeJSON(f.ledger.Path(), []interface{}{blockMap(chain[0]), blockMap(chain[1])}))

	err = f.station.Start()
	assert.ErrorIs(t, err, ErrChainInvalid)
	var integrity *ledger.IntegrityError
	assert.ErrorAs(t, err, &integrity)

	assert.Error(t, f.station.Run(context.Background()))
	assert.Equal(t, Halted, f.station.State())
}

func blockMap(b model.Block) map[string]interface{} {
	return map[string]interface{}{
		"index":     b.Index,
		"timestamp": b.Timestamp,
		"data":      b.Data,
		"prev_hash": b.PrevHash,
		"hash":      b.Hash,
	}
}

func TestClosedScannerStops(t *testing.T) {
	input := scanner.NewChanScanner(1)
	input.Close()
	f := newFixture(t, input, false)
	require.NoError(t, f.station.Run(context.Background()))
	assert.Equal(t, Stopped, f.station.State())
}

func TestNewRequiresComponents(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrMissingPart)
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "awaiting_scan", AwaitingScan.String())
	assert.Equal(t, "issuing_next_token", IssuingNextToken.String())
	assert.Equal(t, "halted", Halted.String())
	assert.Equal(t, "unknown", State(42).String())
	assert.Equal(t, "rejected", Rejected.String())
	assert.Equal(t, "qr_next_7", NextTokenName(7))
}

func writeJSON(path string, v interface{}) error {
	data, err := utils.CanonicalJSON(v, utils.SpacedJSON)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, data, 0644)
}
