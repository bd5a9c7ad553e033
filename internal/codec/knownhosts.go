package codec

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/ssh"

	"osintgraph/internal/domain"
)

// RelationPresentsKey links an SSH host to a public key it presented
const RelationPresentsKey = "presents_key"

// KnownHostsCodec imports OpenSSH known_hosts files. Each host pattern and
// each distinct public key become entities; a host is linked to every key
// it presented, so hosts sharing a key are connected through it.
type KnownHostsCodec struct{}

// NewKnownHostsCodec creates a new known_hosts codec
func NewKnownHostsCodec() *KnownHostsCodec {
	return &KnownHostsCodec{}
}

// Format returns the codec format identifier
func (c *KnownHostsCodec) Format() string {
	return "known_hosts"
}

type hostKeys struct {
	types        []domain.Value
	fingerprints []domain.Value
	marker       string
}

// Parse imports a known_hosts file
func (c *KnownHostsCodec) Parse(r io.Reader) (*domain.Fragment, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read known_hosts: %w", err)
	}

	fragment := domain.NewFragment(c.Format())
	hosts := make(map[string]*hostKeys)
	hostOrder := make([]string, 0)
	keys := make(map[string]bool)

	type link struct{ host, key string }
	links := make([]link, 0)

	rest := data
	for len(rest) > 0 {
		var (
			marker   string
			patterns []string
			pubKey   ssh.PublicKey
			comment  string
		)
		marker, patterns, pubKey, comment, rest, err = ssh.ParseKnownHosts(rest)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse known_hosts: %w", err)
		}

		fingerprint := ssh.FingerprintSHA256(pubKey)
		keyID := "sshkey:" + fingerprint
		if !keys[keyID] {
			keys[keyID] = true
			attrs := domain.Attributes{
				"kind":        domain.String("ssh_key"),
				"source":      domain.String("known_hosts"),
				"key_type":    domain.String(pubKey.Type()),
				"fingerprint": domain.String(fingerprint),
			}
			if comment != "" {
				attrs["comment"] = domain.String(comment)
			}
			fragment.AddEntity(keyID, attrs)
		}

		for _, pattern := range patterns {
			hk, ok := hosts[pattern]
			if !ok {
				hk = &hostKeys{}
				hosts[pattern] = hk
				hostOrder = append(hostOrder, pattern)
			}
			hk.types = append(hk.types, domain.String(pubKey.Type()))
			hk.fingerprints = append(hk.fingerprints, domain.String(fingerprint))
			if marker != "" {
				hk.marker = marker
			}
			links = append(links, link{host: pattern, key: keyID})
		}
	}

	for _, pattern := range hostOrder {
		hk := hosts[pattern]
		attrs := domain.Attributes{
			"kind":         domain.String("ssh_host"),
			"source":       domain.String("known_hosts"),
			"key_types":    domain.List(hk.types...),
			"fingerprints": domain.List(hk.fingerprints...),
			"key_count":    domain.Int(len(hk.types)),
		}
		if hk.marker != "" {
			attrs["marker"] = domain.String(hk.marker)
		}
		fragment.AddEntity(pattern, attrs)
	}
	for _, l := range links {
		fragment.AddRelation(l.host, l.key, RelationPresentsKey)
	}

	return fragment, nil
}
