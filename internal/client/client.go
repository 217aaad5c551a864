// Package client es el SDK Go del servicio de invitaciones. Lo usan
// invitesctl y la app para hablar con /v2 y mantener la sesión.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	identitydto "github.com/aulaviva/invites/internal/http/v2/dto/identity"
	invdto "github.com/aulaviva/invites/internal/http/v2/dto/invitations"
	schooldto "github.com/aulaviva/invites/internal/http/v2/dto/schools"
)

// Client habla con el API v2. Es seguro para uso concurrente.
type Client struct {
	baseURL string
	http    *http.Client

	mu      sync.RWMutex
	access  string
	refresh string

	// refreshes junta los Refresh concurrentes en un solo request: el
	// servidor rota el refresh token y un segundo envío del mismo falla.
	refreshes singleflight.Group
}

// Option configura el Client.
type Option func(*Client)

// WithHTTPClient reemplaza el *http.Client (timeouts, transport de tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New crea un Client contra baseURL (ej. "http://localhost:8080").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SetTokens fija la sesión actual (ej. cargada de disco).
func (c *Client) SetTokens(access, refresh string) {
	c.mu.Lock()
	c.access, c.refresh = access, refresh
	c.mu.Unlock()
}

// Tokens retorna access y refresh token actuales.
func (c *Client) Tokens() (access, refresh string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.access, c.refresh
}

func (c *Client) keep(s *identitydto.SessionResponse) {
	c.SetTokens(s.AccessToken, s.RefreshToken)
}

// do envía in como JSON (si no es nil) y decodifica out. Status no-2xx se
// devuelve como *APIError.
func (c *Client) do(ctx context.Context, method, path string, authed bool, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if authed {
		access, _ := c.Tokens()
		if access == "" {
			return &APIError{Status: http.StatusUnauthorized, Code: "TOKEN_MISSING", Message: "no session"}
		}
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode/100 != 2 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Code == "" {
			apiErr.Code = http.StatusText(resp.StatusCode)
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("client: decode %s %s: %w", method, path, err)
	}
	return nil
}

// ─── Identity ───

func (c *Client) Signup(ctx context.Context, in identitydto.SignupRequest) (*identitydto.SessionResponse, error) {
	var out identitydto.SessionResponse
	if err := c.do(ctx, http.MethodPost, "/v2/auth/signup", false, in, &out); err != nil {
		return nil, err
	}
	c.keep(&out)
	return &out, nil
}

func (c *Client) Login(ctx context.Context, in identitydto.LoginRequest) (*identitydto.SessionResponse, error) {
	var out identitydto.SessionResponse
	if err := c.do(ctx, http.MethodPost, "/v2/auth/login", false, in, &out); err != nil {
		return nil, err
	}
	c.keep(&out)
	return &out, nil
}

// Refresh rota el refresh token y trae un session token con claims actuales.
// Las llamadas concurrentes comparten un único request y su resultado.
func (c *Client) Refresh(ctx context.Context) (*identitydto.SessionResponse, error) {
	v, err, _ := c.refreshes.Do("refresh", func() (any, error) {
		_, rt := c.Tokens()
		if rt == "" {
			return nil, &APIError{Status: http.StatusUnauthorized, Code: "TOKEN_MISSING", Message: "no refresh token"}
		}
		var out identitydto.SessionResponse
		if err := c.do(ctx, http.MethodPost, "/v2/session/refresh", false, identitydto.RefreshRequest{RefreshToken: rt}, &out); err != nil {
			return nil, err
		}
		c.keep(&out)
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	out := *v.(*identitydto.SessionResponse)
	return &out, nil
}

func (c *Client) Me(ctx context.Context) (*identitydto.MeResponse, error) {
	var out identitydto.MeResponse
	if err := c.do(ctx, http.MethodGet, "/v2/me", true, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ─── Schools ───

func (c *Client) CreateSchool(ctx context.Context, name string) (*schooldto.SchoolResponse, error) {
	var out schooldto.SchoolResponse
	if err := c.do(ctx, http.MethodPost, "/v2/schools", true, schooldto.CreateSchoolRequest{Name: name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateClassroom(ctx context.Context, in schooldto.CreateClassroomRequest) (*schooldto.ClassroomResponse, error) {
	var out schooldto.ClassroomResponse
	if err := c.do(ctx, http.MethodPost, "/v2/classrooms", true, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetClassroom(ctx context.Context, id string) (*schooldto.ClassroomResponse, error) {
	var out schooldto.ClassroomResponse
	if err := c.do(ctx, http.MethodGet, "/v2/classrooms/"+url.PathEscape(id), true, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ─── Invitations ───

func (c *Client) EnsureInvitation(ctx context.Context, classroomID, role string) (*invdto.EnsureResponse, error) {
	var out invdto.EnsureResponse
	in := invdto.EnsureRequest{ClassroomID: classroomID, IntendedRole: role}
	if err := c.do(ctx, http.MethodPost, "/v2/invitations/ensure", true, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PreviewInvitation no manda sesión aunque haya una.
func (c *Client) PreviewInvitation(ctx context.Context, token string) (*invdto.PreviewResponse, error) {
	var out invdto.PreviewResponse
	if err := c.do(ctx, http.MethodPost, "/v2/invitations/preview", false, invdto.PreviewRequest{Token: token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConsumeInvitation promueve al Principal de la sesión. Las claims del
// session token actual quedan viejas hasta un Refresh.
func (c *Client) ConsumeInvitation(ctx context.Context, token, childFirstName string) (*invdto.ConsumeResponse, error) {
	var out invdto.ConsumeResponse
	in := invdto.ConsumeRequest{Token: token, ChildFirstName: childFirstName}
	if err := c.do(ctx, http.MethodPost, "/v2/invitations/consume", true, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RevokeInvitation(ctx context.Context, in invdto.RevokeRequest) (*invdto.RevokeResponse, error) {
	var out invdto.RevokeResponse
	if err := c.do(ctx, http.MethodPost, "/v2/invitations/revoke", true, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SendInvitation(ctx context.Context, in invdto.SendRequest) (*invdto.SendResponse, error) {
	var out invdto.SendResponse
	if err := c.do(ctx, http.MethodPost, "/v2/invitations/send", true, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

