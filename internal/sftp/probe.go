package sftp

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/rileyhilliard/bldm-localizer/internal/errors"
	"golang.org/x/crypto/ssh"
)

// FailReason categorizes why a probe failed.
type FailReason int

const (
	FailUnknown FailReason = iota
	FailTimeout
	FailRefused
	FailUnreachable
	FailHandshake
)

func (r FailReason) String() string {
	switch r {
	case FailTimeout:
		return "connection timed out"
	case FailRefused:
		return "connection refused"
	case FailUnreachable:
		return "host unreachable"
	case FailHandshake:
		return "SSH handshake failed"
	default:
		return "unknown error"
	}
}

// ProbeResult describes a reachable SSH server.
type ProbeResult struct {
	Address     string
	Fingerprint string // SHA256 fingerprint of the server host key
	KeyType     string
	Latency     time.Duration
}

// Probe dials host:port and runs an SSH key exchange without offering any
// credentials. Once the server has presented its host key the host counts
// as reachable, even though authentication is then refused.
//
// Failures are SFTP errors whose cause carries a FailReason.
func Probe(ctx context.Context, host string, port int, timeout time.Duration) (ProbeResult, error) {
	if port <= 0 {
		port = DefaultPort
	}
	address := net.JoinHostPort(host, strconv.Itoa(port))
	result := ProbeResult{Address: address}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return result, probeError(address, categorize(err), err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	var hostKey ssh.PublicKey
	config := &ssh.ClientConfig{
		User: "bldm-localizer",
		HostKeyCallback: func(_ string, _ net.Addr, key ssh.PublicKey) error {
			hostKey = key
			return nil
		},
		Timeout: timeout,
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err == nil {
		// A server that lets "none" auth through is still reachable.
		client := ssh.NewClient(sshConn, chans, reqs)
		client.Close()
	} else if hostKey == nil {
		return result, probeError(address, handshakeReason(err), err)
	}

	result.Latency = time.Since(start)
	result.Fingerprint = ssh.FingerprintSHA256(hostKey)
	result.KeyType = hostKey.Type()
	return result, nil
}

// ProbeError carries the categorized reason for a failed probe.
type ProbeError struct {
	Address string
	Reason  FailReason
	Cause   error
}

func (e *ProbeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("probe %s failed: %s (%v)", e.Address, e.Reason, e.Cause)
	}
	return fmt.Sprintf("probe %s failed: %s", e.Address, e.Reason)
}

func (e *ProbeError) Unwrap() error {
	return e.Cause
}

// ReasonOf extracts the FailReason from a Probe error.
func ReasonOf(err error) FailReason {
	var pe *ProbeError
	if stderrors.As(err, &pe) {
		return pe.Reason
	}
	return FailUnknown
}

func probeError(address string, reason FailReason, cause error) error {
	return errors.WrapWithCode(&ProbeError{Address: address, Reason: reason, Cause: cause},
		errors.ErrSFTP,
		fmt.Sprintf("SFTP host %s is not answering: %s", address, reason),
		suggestionFor(reason))
}

func handshakeReason(err error) FailReason {
	if r := categorize(err); r != FailUnknown {
		return r
	}
	return FailHandshake
}

func categorize(err error) FailReason {
	if err == nil {
		return FailUnknown
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return FailTimeout
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return FailTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"):
		return FailTimeout
	case strings.Contains(msg, "connection refused"):
		return FailRefused
	case strings.Contains(msg, "no route to host"),
		strings.Contains(msg, "network is unreachable"),
		strings.Contains(msg, "host is down"),
		strings.Contains(msg, "no such host"):
		return FailUnreachable
	}
	return FailUnknown
}

func suggestionFor(reason FailReason) string {
	switch reason {
	case FailRefused:
		return "Is the SFTP service running on that host? Check the port too"
	case FailTimeout:
		return "The host might be offline or blocked by a firewall"
	case FailUnreachable:
		return "Can't route to the host. Check the address and your network connection"
	case FailHandshake:
		return "Something answered on that port but it doesn't look like an SSH server"
	default:
		return "Make sure the host is reachable: ping <host>"
	}
}
