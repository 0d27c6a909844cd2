package untappd

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

var (
	ErrNoCredentials = errors.New("no stored token and no password given")

	tokenPattern = regexp.MustCompile(`^[0-9A-F]{40}$`)
)

// Session is the outcome of a login. It is passed explicitly to everything
// that needs to talk to the API as the user.
type Session struct {
	Username   string
	Token      string
	Profile    json.RawMessage
	UserID     uint64
	DateJoined time.Time
}

type profilePayload struct {
	UID        json.RawMessage `json:"uid"`
	DateJoined string          `json:"date_joined"`
}

// Login reuses a stored token for username when there is one, otherwise runs
// the xauth handshake and stores the resulting token and profile.
func (c *Client) Login(ctx context.Context, username string, password string) (*Session, error) {
	logger := c.logger.With(zap.String("username", username))

	creds, err := loadCredentials(c.credentialsFile)
	if err != nil {
		return nil, err
	}

	if stored, ok := creds[username]; ok && stored.Token != "" {
		logger.Info("Using stored credentials", zap.String("file", c.credentialsFile))

		return newSession(username, stored.Token, stored.UserInfo)
	}

	if password == "" {
		return nil, fmt.Errorf("%w for %s", ErrNoCredentials, username)
	}

	uid, err := c.validateUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	token, err := c.requestToken(ctx, username, password)
	if err != nil {
		return nil, err
	}

	profile, err := c.Authenticated(&Session{Token: token}).appInit(ctx)
	if err != nil {
		return nil, err
	}

	session, err := newSession(username, token, profile)
	if err != nil {
		return nil, err
	}

	if session.UserID != uid {
		return nil, fmt.Errorf("%w: appInit returned uid %d, expected %d", ErrProtocol, session.UserID, uid)
	}

	err = saveCredentials(c.credentialsFile, username, storedCredentials{Token: token, UserInfo: profile})
	if err != nil {
		return nil, err
	}

	logger.Info("Logged in", zap.Uint64("uid", uid))

	return session, nil
}

func (c *Client) validateUsername(ctx context.Context, username string) (uint64, error) {
	form := url.Values{}
	form.Set("user_data", username)

	response, err := c.Call(ctx, Request{Path: "/xauth/validate_username", Body: form})
	if err != nil {
		return 0, err
	}

	var reply struct {
		UID json.RawMessage `json:"uid"`
	}

	if err = json.Unmarshal(response, &reply); err != nil {
		return 0, fmt.Errorf("%w: validate_username: %w", ErrProtocol, err)
	}

	uid, err := parseUID(reply.UID)
	if err != nil {
		return 0, fmt.Errorf("validate_username: %w", err)
	}

	return uid, nil
}

func (c *Client) requestToken(ctx context.Context, username string, password string) (string, error) {
	form := url.Values{}
	form.Set("user_name", username)
	form.Set("user_password", password)
	form.Set("multi_account", "true")

	if c.deviceID != "" {
		form.Set("device_udid", c.deviceID)
		form.Set("device_name", "Pixel 5")
		form.Set("device_version", "15")
		form.Set("device_platform", "Android")
		form.Set("app_version", c.appVersion)
	}

	response, err := c.Call(ctx, Request{Path: "/xauth", Body: form, NoCache: true})
	if err != nil {
		return "", err
	}

	var reply struct {
		AccessToken string `json:"access_token"`
	}

	if err = json.Unmarshal(response, &reply); err != nil {
		return "", fmt.Errorf("%w: xauth: %w", ErrProtocol, err)
	}

	if !tokenPattern.MatchString(reply.AccessToken) {
		return "", fmt.Errorf("%w: xauth returned a malformed access token", ErrProtocol)
	}

	return reply.AccessToken, nil
}

func (c *Client) appInit(ctx context.Context) (json.RawMessage, error) {
	response, err := c.Call(ctx, Request{Path: "/helpers/appInit"})
	if err != nil {
		return nil, err
	}

	var reply struct {
		Settings struct {
			User json.RawMessage `json:"user"`
		} `json:"settings"`
	}

	if err = json.Unmarshal(response, &reply); err != nil {
		return nil, fmt.Errorf("%w: appInit: %w", ErrProtocol, err)
	}

	if isEmptyJSON(reply.Settings.User) {
		return nil, fmt.Errorf("%w: appInit has no settings.user", ErrProtocol)
	}

	return reply.Settings.User, nil
}

func newSession(username string, token string, profile json.RawMessage) (*Session, error) {
	var payload profilePayload
	if err := json.Unmarshal(profile, &payload); err != nil {
		return nil, fmt.Errorf("%w: user profile: %w", ErrProtocol, err)
	}

	uid, err := parseUID(payload.UID)
	if err != nil {
		return nil, fmt.Errorf("user profile: %w", err)
	}

	session := &Session{
		Username: username,
		Token:    token,
		Profile:  profile,
		UserID:   uid,
	}

	if payload.DateJoined != "" {
		if session.DateJoined, err = ParseTimestamp(payload.DateJoined); err != nil {
			return nil, fmt.Errorf("user profile date_joined: %w", err)
		}
	}

	return session, nil
}

// parseUID accepts a uid sent either as a JSON number or as a numeric string.
func parseUID(raw json.RawMessage) (uint64, error) {
	value := strings.Trim(strings.TrimSpace(string(raw)), `"`)

	uid, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: uid %q is not numeric", ErrProtocol, value)
	}

	return uid, nil
}
