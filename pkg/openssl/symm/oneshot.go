//go:build cgo && !windows

package symm

// DefaultTagSize is the tag length EncryptAEAD produces.
const DefaultTagSize = 16

func run(cr *Crypter, data []byte) ([]byte, error) {
	out := make([]byte, len(data)+2*cr.cipher.BlockSize())
	n, err := cr.Update(data, out)
	if err != nil {
		return nil, err
	}
	m, err := cr.Finalize(out[n:])
	if err != nil {
		return nil, err
	}
	return out[:n+m], nil
}

// Encrypt encrypts data in one call with padding enabled for block modes.
func Encrypt(c Cipher, key, iv, data []byte) ([]byte, error) {
	cr, err := NewCrypter(c, ModeEncrypt, key, iv)
	if err != nil {
		return nil, err
	}
	defer cr.Free()
	return run(cr, data)
}

// Decrypt reverses Encrypt.
func Decrypt(c Cipher, key, iv, data []byte) ([]byte, error) {
	cr, err := NewCrypter(c, ModeDecrypt, key, iv)
	if err != nil {
		return nil, err
	}
	defer cr.Free()
	return run(cr, data)
}

// EncryptAEAD seals data and returns the ciphertext and a DefaultTagSize tag.
func EncryptAEAD(c Cipher, key, iv, aad, data []byte) (ciphertext, tag []byte, err error) {
	if !c.IsAEAD() {
		return nil, nil, ErrNotAEAD
	}
	cr, err := NewCrypter(c, ModeEncrypt, key, iv)
	if err != nil {
		return nil, nil, err
	}
	defer cr.Free()
	if err := cr.AAD(aad); err != nil {
		return nil, nil, err
	}
	ciphertext, err = run(cr, data)
	if err != nil {
		return nil, nil, err
	}
	tag, err = cr.Tag(DefaultTagSize)
	if err != nil {
		return nil, nil, err
	}
	return ciphertext, tag, nil
}

// DecryptAEAD opens data, failing if tag does not authenticate it and aad.
func DecryptAEAD(c Cipher, key, iv, aad, data, tag []byte) ([]byte, error) {
	if !c.IsAEAD() {
		return nil, ErrNotAEAD
	}
	cr, err := NewCrypter(c, ModeDecrypt, key, iv)
	if err != nil {
		return nil, err
	}
	defer cr.Free()
	if err := cr.AAD(aad); err != nil {
		return nil, err
	}
	if err := cr.SetTag(tag); err != nil {
		return nil, err
	}
	return run(cr, data)
}
