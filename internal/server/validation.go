// validation.go - Input validation for signup and upload.
package server

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

func validateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

func validateUsername(username string) (bool, string) {
	if len(username) < 3 {
		return false, "username must be at least 3 characters long"
	}
	if len(username) > 50 {
		return false, "username must be less than 50 characters"
	}
	if !usernameRegex.MatchString(username) {
		return false, "username can only contain letters, numbers, and underscores"
	}
	return true, ""
}

func validatePassword(password string) (bool, string) {
	if len(password) < 8 {
		return false, "password must be at least 8 characters long"
	}
	if len(password) > 128 {
		return false, "password must be less than 128 characters"
	}
	return true, ""
}

// allowedExtensions is the upload allow-list. Only office documents are
// accepted; everything else is rejected before any bytes reach storage.
var allowedExtensions = map[string]bool{
	".docx": true,
	".xlsx": true,
	".pptx": true,
}

func allowedFileExtension(filename string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}
