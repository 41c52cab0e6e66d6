package main

import (
	"errors"
	"fmt"
	"log"

	"github.com/Luismorlan/qrchain/config"
	"github.com/Luismorlan/qrchain/issuer"
	"github.com/Luismorlan/qrchain/renderer"
	"github.com/Luismorlan/qrchain/signer"
	"github.com/Luismorlan/qrchain/utils"
	"github.com/spf13/pflag"
)

var (
	secret     *string
	secretFile *string
	outDir     *string
	size       *int
	payload    *string
	name       *string
	plain      *bool
)

func init() {
	secret = pflag.String("secret", config.DefaultSecret, "HMAC key in plain text")
	secretFile = pflag.String("secret-file", "", "file holding the HMAC key, overrides --secret")
	outDir = pflag.String("out", ".", "directory for the rendered codes")
	size = pflag.Int("qr-size", renderer.DefaultSize, "side of rendered codes in pixels")
	payload = pflag.String("payload", "", "JSON object to issue instead of the two sample codes")
	name = pflag.String("name", "qr_custom", "artifact name of the --payload code")
	plain = pflag.Bool("plain", false, "issue the --payload code unsigned")
}

func key() ([]byte, error) {
	if *secretFile != "" {
		return utils.ReadKeyFile(*secretFile)
	}
	if *secret == "" {
		return nil, errors.New("an HMAC key is required")
	}
	return []byte(*secret), nil
}

func issue(is *issuer.Issuer) ([]issuer.Code, error) {
	if *payload == "" {
		return is.Samples()
	}
	p, err := utils.DecodeJSONObject([]byte(*payload))
	if err != nil {
		return nil, fmt.Errorf("--payload: %w", err)
	}
	var c issuer.Code
	if *plain {
		c, err = is.Plain(*name, p)
	} else {
		c, err = is.Signed(*name, p)
	}
	if err != nil {
		return nil, err
	}
	return []issuer.Code{c}, nil
}

func main() {
	pflag.Parse()

	k, err := key()
	if err != nil {
		log.Fatal(err)
	}
	v, err := signer.NewVerifier(k, false)
	if err != nil {
		log.Fatal(err)
	}
	r, err := renderer.NewPNG(*outDir, *size)
	if err != nil {
		log.Fatal(err)
	}

	codes, err := issue(issuer.New(v, r))
	if err != nil {
		log.Fatal(err)
	}
	for _, c := range codes {
		fmt.Printf("%s saved to %s\n", c.Name, c.Path)
		fmt.Printf("content:\n%s\n\n", c.Text)
	}
}
