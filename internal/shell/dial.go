package shell

import (
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// DialRemote opens an SSH connection and wraps it as a RemoteBackend.
// knownHostsPath may be empty, in which case the host key is accepted
// without verification; callers that care about host authenticity should
// always pass one.
func DialRemote(addr, user, privateKeyPath, knownHostsPath string) (*RemoteBackend, error) {
	keyData, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading private key %q: %w", privateKeyPath, err)
	}
	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return nil, fmt.Errorf("parsing private key %q: %w", privateKeyPath, err)
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if knownHostsPath != "" {
		callback, err := knownhosts.New(knownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("loading known_hosts file %q: %w", knownHostsPath, err)
		}
		hostKeyCallback = callback
	}

	client, err := ssh.Dial("tcp", addr, &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
	})
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}
	return &RemoteBackend{Client: client}, nil
}
