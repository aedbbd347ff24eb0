// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"regexp"
	"strings"
)

// MaskedCredential replaces credential values in anything shown to a user.
const MaskedCredential = "YOUR_API_KEY"

// CredentialParams are the query parameters carrying provider credentials.
var CredentialParams = []string{"apiKey", "key"}

var credentialRe = credentialPattern(CredentialParams)

func credentialPattern(params []string) *regexp.Regexp {
	quoted := make([]string, len(params))
	for i, p := range params {
		quoted[i] = regexp.QuoteMeta(p)
	}

	return regexp.MustCompile(`(?i)([?&](?:` + strings.Join(quoted, "|") + `)=)[^&#\s"]*`)
}

// MaskCredential hides credential query parameter values in rawURL.
func MaskCredential(rawURL string) string {
	return credentialRe.ReplaceAllString(rawURL, "${1}"+MaskedCredential)
}
