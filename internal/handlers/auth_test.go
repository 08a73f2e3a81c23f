package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/namity/backend/internal/db"
	"github.com/namity/backend/internal/keys"
	"github.com/namity/backend/internal/logger"
	"github.com/namity/backend/internal/repository/postgres"
	"github.com/namity/backend/internal/service/auth"
	"github.com/namity/backend/internal/service/auth/tokencodec"
	"github.com/namity/backend/internal/testutil"
	"github.com/namity/backend/internal/verifier"
)

// Send request to test server and read the whole response
func doRequest(t *testing.T, method string, url string, body string, cookies ...*http.Cookie) (*http.Response, string) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, string(respBody)
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func Test_AuthHandlers(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t, db.MigrationsAuth)
	t.Cleanup(pg.Terminate)

	signingKeys, err := keys.Generate("RS256")
	require.NoError(t, err)
	codec, err := tokencodec.New(tokencodec.Config{Issuer: "namity"}, signingKeys)
	require.NoError(t, err)

	// Run http server with production auth service inside db transaction
	// Rollback transaction when test stops
	withServerTx := func(t *testing.T, fn func(url string, s *auth.AuthService, tx pgx.Tx)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			s, err := auth.NewService(auth.Config{
				Hasher:     auth.BcryptHasher{Cost: bcrypt.MinCost},
				AccessTTL:  15 * time.Minute,
				RefreshTTL: 24 * time.Hour,
			}, codec, postgres.NewStorage(tx))
			require.NoError(t, err, "auth service starting error")

			router := NewAuthRouter(s, verifier.New(codec, ""), CookieConfig{}, logger.NewNoOpLogger())
			srv := httptest.NewServer(router)
			defer srv.Close()

			fn(srv.URL, s, tx)
		})
	}

	withServer := func(t *testing.T, fn func(url string, s *auth.AuthService)) {
		withServerTx(t, func(url string, s *auth.AuthService, _ pgx.Tx) {
			fn(url, s)
		})
	}

	login := func(t *testing.T, url string, s *auth.AuthService) (access *http.Cookie, refresh *http.Cookie) {
		_, err := s.Register(t.Context(), "a@x.com", "StrongEnoughPassword")
		require.NoError(t, err)

		resp, body := doRequest(t, http.MethodPost, url+"/auth/login", `{"email": "a@x.com", "password": "StrongEnoughPassword"}`)
		require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)

		access = findCookie(resp.Cookies(), AccessCookieName)
		refresh = findCookie(resp.Cookies(), RefreshCookieName)
		require.NotNil(t, access)
		require.NotNil(t, refresh)
		return access, refresh
	}

	t.Run("register ok", func(t *testing.T) {
		withServer(t, func(url string, _ *auth.AuthService) {
			resp, body := doRequest(t, http.MethodPost, url+"/auth/register", `{"email": "a@x.com", "password": "StrongEnoughPassword"}`)

			require.Equalf(t, http.StatusCreated, resp.StatusCode, "not expected code. Body: %s", body)
			assert.Contains(t, body, `"email":"a@x.com"`)
			assert.Contains(t, body, `"id":`)
			assert.Contains(t, body, `"created_at":`)
			assert.NotContains(t, body, "password")
			assert.Empty(t, resp.Cookies(), "register does not login")
		})
	})

	t.Run("register existed user fails", func(t *testing.T) {
		withServer(t, func(url string, s *auth.AuthService) {
			_, err := s.Register(t.Context(), "a@x.com", "StrongEnoughPassword")
			require.NoError(t, err)

			resp, body := doRequest(t, http.MethodPost, url+"/auth/register", `{"email": "a@x.com", "password": "OtherPassword"}`)

			require.Equalf(t, http.StatusBadRequest, resp.StatusCode, "not expected code. Body: %s", body)
			require.JSONEq(t, `
				{
					"error": "service_error",
					"message": "User with this email already exists"
				}`, body)
		})
	})

	t.Run("register invalid data", func(t *testing.T) {
		withServer(t, func(url string, _ *auth.AuthService) {
			resp, body := doRequest(t, http.MethodPost, url+"/auth/register", `{"email": "not-email", "password": "short"}`)

			require.Equalf(t, http.StatusBadRequest, resp.StatusCode, "not expected code. Body: %s", body)
			require.JSONEq(t, `
				{
					"error": "validation_failed",
					"message": "Request validation failed",
					"fields": {
						"email": "Invalid email address",
						"password": "Value is too short (minimum 8)"
					}
				}`, body)
		})
	})

	t.Run("login ok", func(t *testing.T) {
		withServer(t, func(url string, s *auth.AuthService) {
			_, err := s.Register(t.Context(), "a@x.com", "StrongEnoughPassword")
			require.NoError(t, err)

			resp, body := doRequest(t, http.MethodPost, url+"/auth/login", `{"email": "a@x.com", "password": "StrongEnoughPassword"}`)

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
			require.JSONEq(t, `{"detail": "Logged in"}`, body)
			require.Len(t, resp.Cookies(), 2)

			for name, ttl := range map[string]time.Duration{AccessCookieName: 15 * time.Minute, RefreshCookieName: 24 * time.Hour} {
				cookie := findCookie(resp.Cookies(), name)
				require.NotNil(t, cookie, "cookie %s must be set", name)
				assert.True(t, cookie.HttpOnly, "cookie should be HttpOnly")
				assert.Equal(t, "/", cookie.Path, "cookie should be available on / path")
				assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite, "cookie should be SameSite Lax")
				assert.InDelta(t, ttl.Seconds(), cookie.MaxAge, 2, "max age should be token TTL")
				assert.NotEmpty(t, cookie.Value)
			}
		})
	})

	t.Run("login with openid scope returns id token", func(t *testing.T) {
		withServer(t, func(url string, s *auth.AuthService) {
			_, err := s.Register(t.Context(), "a@x.com", "StrongEnoughPassword")
			require.NoError(t, err)

			resp, body := doRequest(t, http.MethodPost, url+"/auth/login", `{"email": "a@x.com", "password": "StrongEnoughPassword", "scope": ["openid"]}`)

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
			assert.Contains(t, body, `"id_token":"`)
		})
	})

	t.Run("login failed", func(t *testing.T) {
		for name, data := range map[string]string{
			"wrong password": `{"email": "a@x.com", "password": "WrongPassword"}`,
			"unknown email":  `{"email": "b@x.com", "password": "StrongEnoughPassword"}`,
		} {
			t.Run(name, func(t *testing.T) {
				withServer(t, func(url string, s *auth.AuthService) {
					_, err := s.Register(t.Context(), "a@x.com", "StrongEnoughPassword")
					require.NoError(t, err)

					resp, body := doRequest(t, http.MethodPost, url+"/auth/login", data)

					require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "not expected code. Body: %s", body)
					require.JSONEq(t, `
						{
							"error": "service_error",
							"message": "Incorrect username or password"
						}`, body)
					require.Empty(t, resp.Cookies(), "no cookies should be set on login error")
				})
			})
		}
	})

	t.Run("me", func(t *testing.T) {
		t.Run("authenticated", func(t *testing.T) {
			withServer(t, func(url string, s *auth.AuthService) {
				access, _ := login(t, url, s)

				resp, body := doRequest(t, http.MethodGet, url+"/me", "", access)

				require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
				assert.Contains(t, body, `"email":"a@x.com"`)
			})
		})

		t.Run("without cookie", func(t *testing.T) {
			withServer(t, func(url string, _ *auth.AuthService) {
				resp, body := doRequest(t, http.MethodGet, url+"/me", "")

				require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
				require.JSONEq(t, `{"error": "service_error", "message": "Missing access token cookie"}`, body)
			})
		})

		t.Run("with refresh token as access", func(t *testing.T) {
			withServer(t, func(url string, s *auth.AuthService) {
				_, refresh := login(t, url, s)

				resp, body := doRequest(t, http.MethodGet, url+"/me", "", &http.Cookie{Name: AccessCookieName, Value: refresh.Value})

				require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
				require.JSONEq(t, `{"error": "service_error", "message": "Invalid or expired access token"}`, body)
			})
		})

		t.Run("user vanished", func(t *testing.T) {
			withServerTx(t, func(url string, s *auth.AuthService, tx pgx.Tx) {
				access, _ := login(t, url, s)
				_, err := tx.Exec(t.Context(), "DELETE FROM users WHERE email = $1", "a@x.com")
				require.NoError(t, err)

				resp, body := doRequest(t, http.MethodGet, url+"/me", "", access)

				require.Equalf(t, http.StatusNotFound, resp.StatusCode, "not expected code. Body: %s", body)
			})
		})
	})

	t.Run("refresh", func(t *testing.T) {
		t.Run("rotate tokens", func(t *testing.T) {
			withServer(t, func(url string, s *auth.AuthService) {
				_, refresh := login(t, url, s)

				resp, body := doRequest(t, http.MethodPost, url+"/auth/refresh", "", refresh)

				require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
				require.JSONEq(t, `{"detail": "Tokens refreshed"}`, body)
				newRefresh := findCookie(resp.Cookies(), RefreshCookieName)
				require.NotNil(t, newRefresh)
				require.NotNil(t, findCookie(resp.Cookies(), AccessCookieName))
				require.NotEqual(t, refresh.Value, newRefresh.Value, "refresh token should be changed after refresh")
			})
		})

		t.Run("reuse fails", func(t *testing.T) {
			withServer(t, func(url string, s *auth.AuthService) {
				_, refresh := login(t, url, s)
				resp, body := doRequest(t, http.MethodPost, url+"/auth/refresh", "", refresh)
				require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)

				resp, body = doRequest(t, http.MethodPost, url+"/auth/refresh", "", refresh)

				require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "not expected code. Body: %s", body)
				require.JSONEq(t, `{"error": "service_error", "message": "Invalid refresh token"}`, body)
			})
		})

		t.Run("missing cookie", func(t *testing.T) {
			withServer(t, func(url string, _ *auth.AuthService) {
				resp, body := doRequest(t, http.MethodPost, url+"/auth/refresh", "")

				require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
				require.JSONEq(t, `{"error": "service_error", "message": "Missing refresh token cookie"}`, body)
			})
		})

		t.Run("access token as refresh", func(t *testing.T) {
			withServer(t, func(url string, s *auth.AuthService) {
				access, _ := login(t, url, s)

				resp, _ := doRequest(t, http.MethodPost, url+"/auth/refresh", "", &http.Cookie{Name: RefreshCookieName, Value: access.Value})

				require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			})
		})
	})

	t.Run("logout", func(t *testing.T) {
		t.Run("revoke and clear cookies", func(t *testing.T) {
			withServer(t, func(url string, s *auth.AuthService) {
				_, refresh := login(t, url, s)

				resp, body := doRequest(t, http.MethodPost, url+"/auth/logout", "", refresh)

				require.Equalf(t, http.StatusNoContent, resp.StatusCode, "not expected code. Body: %s", body)
				for _, name := range []string{AccessCookieName, RefreshCookieName} {
					cookie := findCookie(resp.Cookies(), name)
					require.NotNil(t, cookie, "cookie %s must be cleared", name)
					assert.Empty(t, cookie.Value)
					assert.Less(t, cookie.MaxAge, 0, "cookie must expire immediately")
				}

				resp, _ = doRequest(t, http.MethodPost, url+"/auth/refresh", "", refresh)
				require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "revoked token must not refresh")
			})
		})

		t.Run("without cookie", func(t *testing.T) {
			withServer(t, func(url string, _ *auth.AuthService) {
				resp, _ := doRequest(t, http.MethodPost, url+"/auth/logout", "")

				require.Equal(t, http.StatusNoContent, resp.StatusCode)
			})
		})

		t.Run("with garbage cookie", func(t *testing.T) {
			withServer(t, func(url string, _ *auth.AuthService) {
				resp, _ := doRequest(t, http.MethodPost, url+"/auth/logout", "", &http.Cookie{Name: RefreshCookieName, Value: "garbage"})

				require.Equal(t, http.StatusNoContent, resp.StatusCode)
			})
		})
	})

	t.Run("change password", func(t *testing.T) {
		t.Run("ok", func(t *testing.T) {
			withServer(t, func(url string, s *auth.AuthService) {
				access, _ := login(t, url, s)

				resp, body := doRequest(t, http.MethodPost, url+"/auth/password/change",
					`{"old_password": "StrongEnoughPassword", "new_password": "EvenStrongerPassword"}`, access)
				require.Equalf(t, http.StatusNoContent, resp.StatusCode, "not expected code. Body: %s", body)

				resp, _ = doRequest(t, http.MethodPost, url+"/auth/login", `{"email": "a@x.com", "password": "EvenStrongerPassword"}`)
				require.Equal(t, http.StatusOK, resp.StatusCode, "new password must work")
			})
		})

		t.Run("wrong old password", func(t *testing.T) {
			withServer(t, func(url string, s *auth.AuthService) {
				access, _ := login(t, url, s)

				resp, body := doRequest(t, http.MethodPost, url+"/auth/password/change",
					`{"old_password": "WrongPassword", "new_password": "EvenStrongerPassword"}`, access)

				require.Equal(t, http.StatusBadRequest, resp.StatusCode)
				require.JSONEq(t, `{"error": "service_error", "message": "Incorrect current password"}`, body)
			})
		})

		t.Run("unauthenticated", func(t *testing.T) {
			withServer(t, func(url string, _ *auth.AuthService) {
				resp, _ := doRequest(t, http.MethodPost, url+"/auth/password/change",
					`{"old_password": "StrongEnoughPassword", "new_password": "EvenStrongerPassword"}`)

				require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			})
		})
	})
}
