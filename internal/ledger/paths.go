package ledger

import (
	"fmt"
	"strings"

	"github.com/set-night/earnapp/internal/domain"
)

const (
	usersRoot   = "users"
	claimsRoot  = "claims"
	historyRoot = "history"
	CatalogRoot = "catalog"
)

func UserPath(userID string) string {
	return Join(usersRoot, userID)
}

func ClaimsPath(userID string) string {
	return Join(claimsRoot, userID)
}

func ClaimCategoryPath(userID string, c domain.Category) string {
	return Join(claimsRoot, userID, string(c))
}

func ClaimPath(userID string, c domain.Category, taskID string) string {
	return Join(claimsRoot, userID, string(c), taskID)
}

func HistoryPath(userID string) string {
	return Join(historyRoot, userID)
}

func HistoryEntryPath(userID, entryID string) string {
	return Join(historyRoot, userID, entryID)
}

func CatalogCategoryPath(c domain.Category) string {
	return Join(CatalogRoot, string(c))
}

func CatalogTaskPath(c domain.Category, taskID string) string {
	return Join(CatalogRoot, string(c), taskID)
}

func Join(parts ...string) string {
	return strings.Join(parts, "/")
}

// Clean trims surrounding slashes and rejects empty or dot segments.
func Clean(path string) (string, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return path, nil
}

// Under reports whether path is strictly below prefix.
func Under(path, prefix string) bool {
	return strings.HasPrefix(path, prefix+"/")
}

// Related reports whether a write to a can affect b or the other way round.
func Related(a, b string) bool {
	return a == b || Under(a, b) || Under(b, a)
}
