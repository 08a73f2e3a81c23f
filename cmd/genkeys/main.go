// Command genkeys writes a fresh PEM keypair for token signing.
//
// The private key goes to the auth service only, the public key to every
// service that verifies tokens.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/namity/backend/internal/keys"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error while generating keys: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("genkeys", pflag.ContinueOnError)

	alg := fs.StringP("algorithm", "a", "RS256", "Signing algorithm (RS256, PS256, ES256, EdDSA, ...)")
	privatePath := fs.String("private", "private.pem", "Private key output path")
	publicPath := fs.String("public", "public.pem", "Public key output path")
	force := fs.BoolP("force", "f", false, "Overwrite existing files")

	if err := fs.Parse(args); err != nil {
		return err
	}

	ks, err := keys.Generate(*alg)
	if err != nil {
		return err
	}

	privatePEM, publicPEM, err := keys.EncodePEM(ks)
	if err != nil {
		return err
	}

	if err := writeFile(*privatePath, privatePEM, 0o600, *force); err != nil {
		return err
	}
	if err := writeFile(*publicPath, publicPEM, 0o644, *force); err != nil {
		return err
	}

	fmt.Printf("%s keypair written: %s, %s\n", *alg, *privatePath, *publicPath)
	return nil
}

func writeFile(path string, data []byte, perm os.FileMode, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}

	f, err := os.OpenFile(path, flags, perm)
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
