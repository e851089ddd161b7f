package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/assert/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"

	"inkwell/handlers"
	"inkwell/middleware"
	"inkwell/models"
	"inkwell/store"
)

func signViewerToken(t *testing.T, uid string) string {
	t.Helper()
	claims := &middleware.Claims{
		UserID: uid,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	assert.Equal(t, err, nil)
	return signed
}

func setupFeedFixture(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	gin.SetMode(gin.TestMode)

	st := store.NewMemory()
	handlers.SetStore(st)

	_, err := st.Create(t.Context(), models.CollPosts, bson.M{
		"title":       "followed post",
		"authorId":    "a1",
		"status":      models.StatusPublished,
		"publishedAt": int64(100),
		"viewCount":   int64(0),
		"likes":       []string{},
		"categories":  []string{},
	})
	assert.Equal(t, err, nil)

	viewerUID, err := st.Create(t.Context(), models.CollUsers, bson.M{
		"username":  "ada",
		"following": []string{"a1"},
		"followers": []string{},
	})
	assert.Equal(t, err, nil)

	return SetupRouter(), viewerUID
}

type feedResponse struct {
	Posts []models.Post `json:"posts"`
}

func TestFeedFollowingWithBearerToken(t *testing.T) {
	router, viewerUID := setupFeedFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/feed?mode=following", nil)
	req.Header.Set("Authorization", "Bearer "+signViewerToken(t, viewerUID))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, w.Code, http.StatusOK)
	var resp feedResponse
	assert.Equal(t, json.Unmarshal(w.Body.Bytes(), &resp), nil)
	assert.Equal(t, len(resp.Posts), 1)
	assert.Equal(t, resp.Posts[0].Title, "followed post")
}

func TestFeedFollowingAnonymous(t *testing.T) {
	router, _ := setupFeedFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/feed?mode=following", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, w.Code, http.StatusUnauthorized)
}

func TestFeedGlobalAnonymous(t *testing.T) {
	router, _ := setupFeedFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, w.Code, http.StatusOK)
	var resp feedResponse
	assert.Equal(t, json.Unmarshal(w.Body.Bytes(), &resp), nil)
	assert.Equal(t, len(resp.Posts), 1)
}
