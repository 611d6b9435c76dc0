package apple

import (
	"archive/zip"
	"bytes"
	"crypto"
	"crypto/sha1" //nolint:gosec
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mozilla.org/pkcs7"
)

// bundleFiles are hashed into manifest.json; manifest and signature are added after.
type bundleFiles map[string][]byte

func (b bundleFiles) manifest() ([]byte, error) {
	hashes := make(map[string]string, len(b))
	for name, data := range b {
		sum := sha1.Sum(data) //nolint:gosec
		hashes[name] = hex.EncodeToString(sum[:])
	}
	return json.Marshal(hashes)
}

func (b bundleFiles) names() []string {
	names := make([]string, 0, len(b))
	for name := range b {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// signManifest produces the detached PKCS#7 signature over manifest.json
// using the signer certificate with WWDR as intermediate.
func signManifest(manifest []byte, creds Credentials) ([]byte, error) {
	signerCert, err := parseCertificate(creds.SignerCert)
	if err != nil {
		return nil, fmt.Errorf("signer certificate: %w", err)
	}
	wwdr, err := parseCertificate(creds.WWDR)
	if err != nil {
		return nil, fmt.Errorf("wwdr certificate: %w", err)
	}
	key, err := parsePrivateKey(creds.SignerKey, creds.SignerKeyPassword)
	if err != nil {
		return nil, fmt.Errorf("signer key: %w", err)
	}

	signed, err := pkcs7.NewSignedData(manifest)
	if err != nil {
		return nil, fmt.Errorf("init signed data: %w", err)
	}
	signed.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)
	if err := signed.AddSignerChain(signerCert, key, []*x509.Certificate{wwdr}, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, fmt.Errorf("add signer: %w", err)
	}
	signed.Detach()
	return signed.Finish()
}

func writeArchive(files bundleFiles, manifest, signature []byte, modified time.Time) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	write := func(name string, data []byte) error {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified})
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	for _, name := range files.names() {
		if err := write(name, files[name]); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
	}
	if err := write("manifest.json", manifest); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	if err := write("signature", signature); err != nil {
		return nil, fmt.Errorf("write signature: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}

func parseCertificate(pemBytes []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	return x509.ParseCertificate(block.Bytes)
}

func parsePrivateKey(pemBytes []byte, password string) (crypto.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	der := block.Bytes
	//nolint:staticcheck // legacy encrypted PEM keys are what the Apple tooling exports
	if x509.IsEncryptedPEMBlock(block) {
		decrypted, err := x509.DecryptPEMBlock(block, []byte(password))
		if err != nil {
			return nil, fmt.Errorf("decrypt key: %w", err)
		}
		der = decrypted
	}
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	return nil, errors.New("unsupported private key format")
}
