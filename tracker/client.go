package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strconv"
	"time"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/google/uuid"
)

// PeerIDLength is the fixed peer id length of the tracker protocol.
const PeerIDLength = 20

// peerIDPrefix is the fixed client prefix; the remaining 12 bytes are
// random per client instance.
const peerIDPrefix = "-SW1000-"

const defaultTimeout = 30 * time.Second

// PeerListCallback receives the outcome of an announce: a status
// message (empty on success), the tracker's report interval in seconds,
// and the decoded peer list.
type PeerListCallback func(status string, interval uint32, peers []netip.AddrPort)

// Client announces swarm membership to one HTTP tracker and parses the
// compact peer lists it returns.
type Client struct {
	url    string
	peerID [PeerIDLength]byte
	httpc  *http.Client
	log    logger.Logger
}

// NewClient creates a tracker client for the given announce URL. The
// peer id is the fixed client prefix followed by 12 random bytes; when
// crypto grade randomness is unavailable a time-derived non-repeating
// fallback is used.
func NewClient(trackerURL string) *Client {
	c := &Client{
		url:   trackerURL,
		httpc: &http.Client{Timeout: defaultTimeout},
		log:   logger.Sugar.WithServiceName("tracker"),
	}
	copy(c.peerID[:], peerIDPrefix)

	if id, err := uuid.NewRandom(); err == nil {
		copy(c.peerID[len(peerIDPrefix):], id[:])
	} else {
		// Non-repeating per process start; uniqueness beats secrecy
		// here.
		fallback := strconv.FormatInt(time.Now().UnixNano(), 10)
		copy(c.peerID[len(peerIDPrefix):], fallback)
	}
	return c
}

// PeerID exposes the announce identity, mostly for diagnostics.
func (c *Client) PeerID() []byte { return c.peerID[:] }

// Announce contacts the tracker and delivers the outcome through the
// callback. Transport failures, bad status codes and malformed replies
// are reported through the callback as well, so the caller retries on
// its own schedule either way. The returned error only reflects a
// request that cannot be built from the URL; the callback is not
// invoked in that case.
func (c *Client) Announce(ctx context.Context, params AnnounceParams, callback PeerListCallback) error {
	fullURL := c.url + "?" + c.buildQuery(params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadTrackerReply, err)
	}

	c.log.Debugf("tracker: announce %s", fullURL)
	announces.Inc()

	resp, err := c.httpc.Do(req)
	if err != nil {
		callback(fmt.Sprintf("Tracker request failed: %v", err), 0, nil)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		callback("Invalid HTTP Response Code", 0, nil)
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		callback("Invalid HTTP Response Code", 0, nil)
		return nil
	}

	status, interval, peers := parseAnnounceReply(body)
	callback(status, interval, peers)
	return nil
}

// parseAnnounceReply implements the fixed parse order of the tracker
// protocol: failure reason short-circuits, then the report interval,
// then the compact IPv4 or IPv6 peer list. Each lookup re-seeds a
// reader because reads consume the buffer.
func parseAnnounceReply(body []byte) (status string, interval uint32, peers []netip.AddrPort) {
	if value, err := NewReader(body).ReadString("failure reason"); err == nil {
		return "Tracker responded: " + string(value), 0, nil
	} else if !isNotFound(err) {
		return "Error parsing tracker response: failure reason", 0, nil
	}

	if digits, err := NewReader(body).ReadInt("interval"); err == nil {
		v, err := strconv.ParseUint(string(digits), 10, 32)
		if err != nil {
			return "Error parsing tracker response: interval", 0, nil
		}
		interval = uint32(v)
	} else if !isNotFound(err) {
		return "Error parsing tracker response: interval", 0, nil
	}

	// Try the IPv6 key first: searching for "peers" would match inside
	// "peers6". The reverse false match also exists (a "peers" length
	// that starts with a 6), so a failed IPv6 attempt falls through to
	// the IPv4 key rather than erroring.
	if value, err := NewReader(body).ReadString("peers6"); err == nil {
		if peers, perr := ParseCompactPeers(value, true); perr == nil {
			return "", interval, peers
		}
	}
	if value, err := NewReader(body).ReadString("peers"); err == nil {
		if peers, perr := ParseCompactPeers(value, false); perr == nil {
			return "", interval, peers
		}
	}
	return "Error parsing tracker response: peerlist", interval, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}
