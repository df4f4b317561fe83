package push

import (
	"log"
	"os"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// LoadVAPIDKeys reads the VAPID key pair from the environment, generating a
// fresh pair when none is configured. The browser-side public key must match
// this one byte for byte or subscribe() fails with an opaque browser error,
// so generated keys are printed for persisting in .env.
func LoadVAPIDKeys() (privateKey, publicKey string, err error) {
	privateKey = os.Getenv("VAPID_PRIVATE_KEY")
	publicKey = os.Getenv("VAPID_PUBLIC_KEY")

	if privateKey == "" || publicKey == "" {
		log.Println("VAPID keys not found in environment. Generating new keys...")
		privateKey, publicKey, err = webpush.GenerateVAPIDKeys()
		if err != nil {
			return "", "", err
		}
		log.Printf("Generated VAPID Keys:\nVAPID_PRIVATE_KEY=%s\nVAPID_PUBLIC_KEY=%s\n(Add these to your .env file to persist them)", privateKey, publicKey)
	}

	return privateKey, publicKey, nil
}
