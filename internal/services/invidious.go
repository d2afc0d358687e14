// Invidious API client
//
// Endpoints documented at https://docs.invidious.io/api/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/polyplayer/internal/shared"
)

const (
	defaultInstancesURL     = "https://api.invidious.io/instances.json"
	defaultInvidiousTimeout = 10 * time.Second
)

// Instance is one entry of the Invidious instance directory.
type Instance struct {
	Name   string         `json:"-"`
	URI    string         `json:"uri"`
	Type   string         `json:"type"`
	API    *bool          `json:"api"`
	Region string         `json:"region"`
	Stats  *InstanceStats `json:"stats"`
}

// InstanceStats is the subset of an instance's published statistics used for ranking.
type InstanceStats struct {
	Usage struct {
		Users struct {
			Total          int `json:"total"`
			ActiveHalfyear int `json:"activeHalfyear"`
			ActiveMonth    int `json:"activeMonth"`
		} `json:"users"`
	} `json:"usage"`
}

// ActiveUsers returns the half-year active user count, or zero without stats.
func (i Instance) ActiveUsers() int {
	if i.Stats == nil {
		return 0
	}
	return i.Stats.Usage.Users.ActiveHalfyear
}

// Eligible reports whether the instance publishes stats, exposes the API and is served over https.
func (i Instance) Eligible() bool {
	return i.Stats != nil && i.API != nil && *i.API && i.Type == "https" && i.URI != ""
}

// InvidiousOpts configures [NewInvidiousService]. Zero values fall back to defaults.
type InvidiousOpts struct {
	HostURL      string
	InstancesURL string
	Timeout      time.Duration
	RateLimit    float64 // requests per second, <= 0 disables limiting
	Client       *http.Client
	Logger       *log.Logger
}

// InvidiousService implements [VideoSource] against a single Invidious instance.
type InvidiousService struct {
	mu           sync.RWMutex
	hostURL      string
	instancesURL string
	timeout      time.Duration
	client       *http.Client
	limiter      *rate.Limiter
	logger       *log.Logger
}

// NewInvidiousService creates a client. Without a HostURL, call [InvidiousService.Load] before use.
func NewInvidiousService(opts InvidiousOpts) *InvidiousService {
	if opts.InstancesURL == "" {
		opts.InstancesURL = defaultInstancesURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultInvidiousTimeout
	}
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), max(1, int(opts.RateLimit)))
	}

	return &InvidiousService{
		hostURL:      strings.TrimRight(opts.HostURL, "/"),
		instancesURL: opts.InstancesURL,
		timeout:      opts.Timeout,
		client:       opts.Client,
		limiter:      limiter,
		logger:       shared.WithLogger(opts.Logger, "component", "invidious"),
	}
}

// Host returns the instance in use, or "" before [InvidiousService.Load].
func (s *InvidiousService) Host() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hostURL
}

// Load selects an instance from the directory unless a host was configured.
func (s *InvidiousService) Load(ctx context.Context) (string, error) {
	if host := s.Host(); host != "" {
		return host, nil
	}

	host, err := s.SelectInstance(ctx)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.hostURL = host
	s.mu.Unlock()

	s.logger.Info("selected instance", "host", host)
	return host, nil
}

// SelectInstance returns the URI of the eligible instance with the most half-year active users.
func (s *InvidiousService) SelectInstance(ctx context.Context) (string, error) {
	instances, err := s.Instances(ctx)
	if err != nil {
		return "", err
	}
	if len(instances) == 0 {
		return "", shared.ErrNoInstanceAvailable
	}
	return instances[0].URI, nil
}

// Instances returns eligible directory entries ranked by half-year active users, busiest first.
// Ties keep directory order.
func (s *InvidiousService) Instances(ctx context.Context) ([]Instance, error) {
	body, _, err := s.get(ctx, s.instancesURL)
	if err != nil {
		return nil, err
	}

	all, err := parseDirectory(body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode instance directory: %w", shared.ErrUpstream, err)
	}

	eligible := make([]Instance, 0, len(all))
	for _, inst := range all {
		if inst.Eligible() {
			inst.URI = strings.TrimRight(inst.URI, "/")
			eligible = append(eligible, inst)
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].ActiveUsers() > eligible[j].ActiveUsers()
	})
	return eligible, nil
}

// parseDirectory accepts the published list of [name, descriptor] pairs, or a name to descriptor object.
func parseDirectory(body []byte) ([]Instance, error) {
	var pairs [][2]json.RawMessage
	if err := json.Unmarshal(body, &pairs); err == nil {
		instances := make([]Instance, 0, len(pairs))
		for _, pair := range pairs {
			var inst Instance
			if err := json.Unmarshal(pair[1], &inst); err != nil {
				continue
			}
			_ = json.Unmarshal(pair[0], &inst.Name)
			instances = append(instances, inst)
		}
		return instances, nil
	}

	var byName map[string]Instance
	if err := json.Unmarshal(body, &byName); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	instances := make([]Instance, 0, len(names))
	for _, name := range names {
		inst := byName[name]
		inst.Name = name
		instances = append(instances, inst)
	}
	return instances, nil
}

// FetchItem retrieves video metadata, retrying exactly once when the instance reports a failure.
func (s *InvidiousService) FetchItem(ctx context.Context, id string) (*Video, error) {
	video, err := s.fetchVideo(ctx, id)
	if err == nil || !errors.Is(err, shared.ErrUpstream) || ctx.Err() != nil {
		return video, err
	}

	s.logger.Warn("failed to fetch video, trying once more", "id", id, "err", err)
	return s.fetchVideo(ctx, id)
}

func (s *InvidiousService) fetchVideo(ctx context.Context, id string) (*Video, error) {
	host, err := s.requireHost()
	if err != nil {
		return nil, err
	}

	body, status, err := s.get(ctx, host+"/api/v1/videos/"+url.PathEscape(id))
	if err != nil && body == nil {
		return nil, err
	}

	var video Video
	if decodeErr := json.Unmarshal(body, &video); decodeErr != nil {
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: failed to decode response: %w", shared.ErrUpstream, decodeErr)
	}

	if video.Error != "" {
		return nil, fmt.Errorf("%w: %s", shared.ErrUpstream, video.Error)
	}
	if err != nil {
		return nil, err
	}
	if video.VideoID == "" {
		return nil, fmt.Errorf("%w: empty response for %s (status %d)", shared.ErrUpstream, id, status)
	}

	video.Raw = body
	return &video, nil
}

// Search returns video results for query in relevance order.
func (s *InvidiousService) Search(ctx context.Context, query string) ([]Video, error) {
	host, err := s.requireHost()
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("sort_by", "relevance")
	params.Set("type", "video")

	body, _, err := s.get(ctx, host+"/api/v1/search?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var results []Video
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %w", shared.ErrUpstream, err)
	}

	videos := results[:0]
	for _, r := range results {
		if r.VideoID != "" {
			videos = append(videos, r)
		}
	}
	return videos, nil
}

// NegotiateAudio picks the highest bitrate audio-only format and resolves it to a playable URL.
func (s *InvidiousService) NegotiateAudio(ctx context.Context, video *Video) (string, error) {
	if video == nil {
		return "", fmt.Errorf("%w: nil video", shared.ErrInvalidArgument)
	}

	format, ok := BestAudioFormat(video.AdaptiveFormats)
	if !ok {
		return "", fmt.Errorf("%w: %s", shared.ErrNoAudioFormat, video.VideoID)
	}

	host, err := s.requireHost()
	if err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("id", video.VideoID)
	params.Set("itag", format.Itag.String())
	params.Set("local", "true")

	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrUpstream, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, host+"/latest_version?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: request failed: %w", shared.ErrUpstream, err)
	}
	// The body is the media itself, only the final location matters.
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: latest_version returned status %d", shared.ErrUpstream, resp.StatusCode)
	}

	return resp.Request.URL.String(), nil
}

// BestAudioFormat returns the audio-only format with the highest bitrate. The first wins on ties.
func BestAudioFormat(formats []AdaptiveFormat) (AdaptiveFormat, bool) {
	var (
		best  AdaptiveFormat
		found bool
	)
	for _, f := range formats {
		if !strings.HasPrefix(f.Type, "audio/") {
			continue
		}
		if !found || f.Bitrate > best.Bitrate {
			best, found = f, true
		}
	}
	return best, found
}

func (s *InvidiousService) requireHost() (string, error) {
	host := s.Host()
	if host == "" {
		return "", fmt.Errorf("%w: no instance selected", shared.ErrNoInstanceAvailable)
	}
	return host, nil
}

// get performs a rate limited GET bounded by the service timeout.
//
// Non-2xx responses return the body alongside an [shared.ErrUpstream] so callers can inspect error payloads.
func (s *InvidiousService) get(ctx context.Context, endpoint string) ([]byte, int, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", shared.ErrUpstream, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: request failed: %w", shared.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: failed to read response: %w", shared.ErrUpstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, resp.StatusCode, fmt.Errorf("%w: status %d from %s", shared.ErrUpstream, resp.StatusCode, req.URL.Path)
	}
	return body, resp.StatusCode, nil
}
