package codec

import (
	"encoding/json"
	"testing"

	"github.com/Luismorlan/qrchain/model"
	"github.com/Luismorlan/qrchain/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sampleCanonical = `{"batch":"2025-11-01","issuer":"FABRICA_X","serial":"0001","sku":"ABC123"}`
	sampleSigned    = "eyJiYXRjaCI6IjIwMjUtMTEtMDEiLCJpc3N1ZXIiOiJGQUJSSUNBX1giLCJzZXJpYWwiOiIwMDAxIiwic2t1IjoiQUJDMTIzIn0.144Pt8I1OQFKKFXzjfOb5YINTCe2L-kstalNXUHVVBU"
)

func samplePayload() model.Payload {
	return model.Payload{
		"sku":    "ABC123",
		"serial": "0001",
		"batch":  "2025-11-01",
		"issuer": "FABRICA_X",
	}
}

func TestEncodePlain(t *testing.T) {
	text, err := Encode(samplePayload(), nil)
	require.NoError(t, err)
	assert.Equal(t, sampleCanonical, text)
}

func TestEncodeSignedMatchesReference(t *testing.T) {
	sig := utils.HMACSHA256([]byte("mi_clave_secreta_32bytes"), []byte(sampleCanonical))
	text, err := Encode(samplePayload(), sig)
	require.NoError(t, err)
	assert.Equal(t, sampleSigned, text)
}

func TestDecodeSigned(t *testing.T) {
	tok, err := Decode(sampleSigned)
	require.NoError(t, err)
	signed, ok := tok.(Signed)
	require.True(t, ok, "expected signed token, got %T", tok)
	assert.Equal(t, sampleCanonical, string(signed.Payload))
	assert.Len(t, signed.Signature, 32)

	fields, err := signed.Fields()
	require.NoError(t, err)
	assert.Equal(t, samplePayload(), fields)
}

func TestRoundTripSigned(t *testing.T) {
	sig := []byte{1, 2, 3, 250, 251, 252}
	text, err := Encode(samplePayload(), sig)
	require.NoError(t, err)

	tok, err := Decode(text)
	require.NoError(t, err)
	signed := tok.(Signed)
	assert.Equal(t, sig, signed.Signature)
	fields, err := signed.Fields()
	require.NoError(t, err)
	assert.Equal(t, samplePayload(), fields)
}

func TestRoundTripPlain(t *testing.T) {
	p := model.Payload{"prev_hash": "ab", "index": json.Number("3"), "note": "más"}
	text, err := Encode(p, nil)
	require.NoError(t, err)

	tok, err := Decode(text)
	require.NoError(t, err)
	plain, ok := tok.(Plain)
	require.True(t, ok, "expected plain token, got %T", tok)
	assert.Equal(t, p, plain.Payload)
	assert.Equal(t, text, string(plain.Raw))
}

func TestDecodePlainWithDotInValue(t *testing.T) {
	tok, err := Decode(`{"temp": 21.5, "host": "a.b"}`)
	require.NoError(t, err)
	plain, ok := tok.(Plain)
	require.True(t, ok)
	assert.Equal(t, json.Number("21.5"), plain.Payload["temp"])
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := []struct {
		text string
		want error
	}{
		{"not.a.valid.token", ErrMalformedSignedToken},
		{"abc.", ErrMalformedSignedToken},
		{".abc", ErrMalformedSignedToken},
		{"a.YWJj", ErrMalformedSignedToken},
		{"plain words", ErrUnrecognizedFormat},
		{"", ErrUnrecognizedFormat},
		{"[1,2,3]", ErrUnrecognizedFormat},
		{`{"a":1`, ErrUnrecognizedFormat},
	}
	for _, c := range cases {
		_, err := Decode(c.text)
		assert.ErrorIs(t, err, c.want, c.text)
		assert.ErrorIs(t, err, ErrMalformedToken, c.text)
	}
}

func TestSignedFieldsRejectsNonObject(t *testing.T) {
	_, err := Signed{Payload: []byte("[1]"), Signature: []byte{1}}.Fields()
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestDecodeTrimsWhitespace(t *testing.T) {
	tok, err := Decode("  " + sampleSigned + "\n")
	require.NoError(t, err)
	_, ok := tok.(Signed)
	assert.True(t, ok)
}
