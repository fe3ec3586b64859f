// Command pam-totp enrolls principals for TOTP second-factor
// authentication and verifies codes, suitable for pam_exec-style
// integration: verify exits 0 on acceptance and 1 on rejection.
package main

import (
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"os"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/urfave/cli/v2"

	"github.com/jhahn/pam-totp/pkg/keystore"
	"github.com/jhahn/pam-totp/pkg/otp"
	"github.com/jhahn/pam-totp/pkg/pam"
	"github.com/jhahn/pam-totp/pkg/replay"
)

func main() {
	app := &cli.App{
		Name:  "pam-totp",
		Usage: "TOTP second-factor enrollment and verification",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "secrets",
				Usage: "directory holding enrolled secrets",
				Value: "/var/lib/pam-totp/secrets",
			},
			&cli.StringFlag{
				Name:  "state",
				Usage: "directory holding used-code records",
				Value: "/var/lib/pam-totp/used",
			},
			&cli.IntFlag{
				Name:  "digits",
				Usage: "code width (4-10)",
				Value: otp.DefaultDigits,
			},
			&cli.IntFlag{
				Name:  "period",
				Usage: "time step in seconds",
				Value: otp.DefaultPeriod,
			},
			&cli.StringFlag{
				Name:  "algorithm",
				Usage: "HOTP hash: SHA1, SHA256, or SHA512",
				Value: string(otp.AlgorithmSHA1),
			},
			&cli.IntFlag{
				Name:  "window",
				Usage: "periods of clock skew tolerated on either side",
				Value: 1,
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log diagnostics to stderr",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "enroll",
				Usage:     "generate and store a secret, printing the provisioning URI",
				ArgsUsage: "<principal>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "issuer", Value: "pam-totp", Usage: "issuer shown in the authenticator app"},
					&cli.StringFlag{Name: "qr", Usage: "also write a QR code PNG to this path"},
					&cli.BoolFlag{Name: "force", Usage: "replace an existing enrollment"},
				},
				Action: enroll,
			},
			{
				Name:      "verify",
				Usage:     "prompt for a code and verify it (exit 0 accept, 1 reject)",
				ArgsUsage: "<principal>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "code", Usage: "verify this code instead of prompting"},
					&cli.BoolFlag{Name: "allow-missing", Usage: "accept principals with no enrolled secret"},
				},
				Action: verify,
			},
			{
				Name:      "uri",
				Usage:     "print the provisioning URI for an enrolled principal",
				ArgsUsage: "<principal>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "issuer", Value: "pam-totp", Usage: "issuer shown in the authenticator app"},
				},
				Action: uri,
			},
			{
				Name:      "qr",
				Usage:     "write the provisioning QR code PNG for an enrolled principal",
				ArgsUsage: "<principal> <out.png>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "issuer", Value: "pam-totp", Usage: "issuer shown in the authenticator app"},
				},
				Action: qrCode,
			},
			{
				Name:      "disable",
				Usage:     "remove a principal's enrollment",
				ArgsUsage: "<principal>",
				Action:    disable,
			},
			{
				Name:      "login",
				Usage:     "full two-factor check: host PAM password, then TOTP code",
				ArgsUsage: "<principal>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "service", Value: "login", Usage: "PAM service for the password factor"},
				},
				Action: login,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func principalArg(c *cli.Context) (string, error) {
	name := c.Args().First()
	if name == "" {
		return "", errors.New("a principal name is required")
	}
	return name, nil
}

func newStore(c *cli.Context) (*keystore.FileStore, error) {
	return keystore.NewFileStore(c.String("secrets"))
}

func newVerifier(c *cli.Context) (*otp.Verifier, error) {
	window := c.Int("window")
	retention := uint64(replay.DefaultRetention)
	if window >= 0 && uint64(2*window+1) > retention {
		// Retention below 2*window+1 could prune a counter that is still
		// matchable, reopening the replay it exists to close.
		retention = uint64(2*window + 1)
	}

	guard, err := replay.NewFileGuard(c.String("state"), retention)
	if err != nil {
		return nil, err
	}

	return otp.NewVerifier(otp.VerifierConfig{
		Digits:    c.Int("digits"),
		Period:    c.Int("period"),
		Algorithm: otp.Algorithm(c.String("algorithm")),
		Window:    window,
		Guard:     guard,
		Logger:    verboseLogger(c),
	})
}

func enrolledKey(c *cli.Context, issuer, name string) (*otp.Key, error) {
	store, err := newStore(c)
	if err != nil {
		return nil, err
	}
	secret, err := store.Load(c.Context, name)
	if err != nil {
		return nil, err
	}
	return &otp.Key{
		Issuer:      issuer,
		AccountName: name,
		Secret:      secret,
		Digits:      c.Int("digits"),
		Period:      c.Int("period"),
		Algorithm:   otp.Algorithm(c.String("algorithm")),
	}, nil
}

func enroll(c *cli.Context) error {
	name, err := principalArg(c)
	if err != nil {
		return err
	}
	store, err := newStore(c)
	if err != nil {
		return err
	}

	if !c.Bool("force") {
		exists, err := store.Exists(c.Context, name)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%s is already enrolled (use --force to replace)", name)
		}
	}

	secret, err := otp.GenerateSecret(0)
	if err != nil {
		// A weak secret is worse than no secret.
		return cli.Exit(err, 2)
	}
	defer otp.Zero(secret)

	if err := store.Save(c.Context, name, secret); err != nil {
		return err
	}

	key := otp.Key{
		Issuer:      c.String("issuer"),
		AccountName: name,
		Secret:      secret,
		Digits:      c.Int("digits"),
		Period:      c.Int("period"),
		Algorithm:   otp.Algorithm(c.String("algorithm")),
	}
	fmt.Println(key.URI())

	if out := c.String("qr"); out != "" {
		if err := writeQR(key.URI(), out); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "QR code written to %s\n", out)
	}
	return nil
}

func verify(c *cli.Context) error {
	name, err := principalArg(c)
	if err != nil {
		return err
	}
	store, err := newStore(c)
	if err != nil {
		return err
	}
	verifier, err := newVerifier(c)
	if err != nil {
		return err
	}

	var conv pam.Conversation = pam.NewTerminalConversation()
	if code := c.String("code"); code != "" {
		conv = staticConversation(code)
	}

	second, err := pam.NewSecondFactor(pam.SecondFactorConfig{
		Store:        store,
		Verifier:     verifier,
		Conversation: conv,
		AllowMissing: c.Bool("allow-missing"),
		Logger:       verboseLogger(c),
	})
	if err != nil {
		return err
	}

	if err := second.Authenticate(c.Context, name); err != nil {
		return cli.Exit("verification failed", 1)
	}
	return nil
}

func uri(c *cli.Context) error {
	name, err := principalArg(c)
	if err != nil {
		return err
	}
	key, err := enrolledKey(c, c.String("issuer"), name)
	if err != nil {
		return err
	}
	defer otp.Zero(key.Secret)

	fmt.Println(key.URI())
	return nil
}

func qrCode(c *cli.Context) error {
	name, err := principalArg(c)
	if err != nil {
		return err
	}
	out := c.Args().Get(1)
	if out == "" {
		return errors.New("an output path is required")
	}

	key, err := enrolledKey(c, c.String("issuer"), name)
	if err != nil {
		return err
	}
	defer otp.Zero(key.Secret)

	return writeQR(key.URI(), out)
}

func disable(c *cli.Context) error {
	name, err := principalArg(c)
	if err != nil {
		return err
	}
	store, err := newStore(c)
	if err != nil {
		return err
	}
	return store.Delete(c.Context, name)
}

func login(c *cli.Context) error {
	name, err := principalArg(c)
	if err != nil {
		return err
	}

	first, err := pam.NewFirstFactor(c.String("service"), nil)
	if err != nil {
		return err
	}

	conv := pam.NewTerminalConversation()
	password, err := conv.Prompt("Password: ")
	if err != nil {
		return cli.Exit("authentication failed", 1)
	}
	if err := first.Authenticate(c.Context, name, password); err != nil {
		return cli.Exit("authentication failed", 1)
	}

	store, err := newStore(c)
	if err != nil {
		return err
	}
	verifier, err := newVerifier(c)
	if err != nil {
		return err
	}
	second, err := pam.NewSecondFactor(pam.SecondFactorConfig{
		Store:        store,
		Verifier:     verifier,
		Conversation: conv,
		Logger:       verboseLogger(c),
	})
	if err != nil {
		return err
	}

	if err := second.Authenticate(c.Context, name); err != nil {
		return cli.Exit("authentication failed", 1)
	}
	fmt.Fprintln(os.Stderr, "Authentication succeeded.")
	return nil
}

func writeQR(uri, path string) error {
	code, err := qr.Encode(uri, qr.M, qr.Auto)
	if err != nil {
		return fmt.Errorf("encoding QR code: %w", err)
	}
	code, err = barcode.Scale(code, 512, 512)
	if err != nil {
		return fmt.Errorf("scaling QR code: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := png.Encode(f, code); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func verboseLogger(c *cli.Context) *slog.Logger {
	if !c.Bool("verbose") {
		return nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// staticConversation satisfies Conversation with a fixed code, for
// invocations that pass the candidate on the command line.
type staticConversation string

func (s staticConversation) Prompt(string) (string, error) { return string(s), nil }
func (staticConversation) Info(string) error               { return nil }
func (staticConversation) Error(string) error              { return nil }
