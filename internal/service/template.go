package service

import (
	"regexp"
	"strings"

	"github.com/lumeocrm/campaign-service/internal/model"
)

// Merge tags look like {first_name} or {firstName}; both spellings resolve to
// the same field. Rendering is pure: same template + same recipient always
// produces the same output.

var tagPattern = regexp.MustCompile(`\{([A-Za-z][A-Za-z0-9_]*)\}`)

// DefaultSenderName is substituted for {sender_name} when the campaign has no
// sender identity and the caller supplied no fallback.
const DefaultSenderName = "The Team"

// Built-in CRM fields, keyed by normalized tag. Values are the display names
// used for bracketed placeholders when the field is missing.
var builtinFields = map[string]string{
	"firstname": "FirstName",
	"lastname":  "LastName",
	"email":     "Email",
	"phone":     "Phone",
	"company":   "Company",
	"location":  "Location",
	"jobtitle":  "JobTitle",
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.ReplaceAll(tag, "_", ""))
}

// placeholderName derives the bracketed display name for a tag, e.g.
// first_name and firstName both become FirstName.
func placeholderName(tag string) string {
	if name, ok := builtinFields[normalizeTag(tag)]; ok {
		return name
	}
	parts := strings.Split(tag, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, "")
}

// RenderTemplate substitutes every recognized merge tag in template with the
// recipient's value. A recognized field that is absent or empty renders as a
// bracketed placeholder like [FirstName]; unrecognized tags are left exactly
// as written. The reserved {sender_name} tag resolves against the campaign
// sender identity, falling back to senderFallback and then DefaultSenderName.
func RenderTemplate(template string, rec model.Recipient, sender model.SenderIdentity, senderFallback string) string {
	// normalized merge-field lookup, so firstName and first_name both hit
	// the same value
	fields := make(map[string]string, len(rec.MergeFields)+2)
	for k, v := range rec.MergeFields {
		fields[normalizeTag(k)] = v
	}
	if rec.Email != "" {
		fields["email"] = rec.Email
	}
	if rec.Phone != "" {
		fields["phone"] = rec.Phone
	}

	return tagPattern.ReplaceAllStringFunc(template, func(match string) string {
		tag := match[1 : len(match)-1]
		key := normalizeTag(tag)

		if key == "sendername" {
			if sender.DisplayName != "" {
				return sender.DisplayName
			}
			if senderFallback != "" {
				return senderFallback
			}
			return DefaultSenderName
		}

		value, known := fields[key]
		if !known {
			if _, builtin := builtinFields[key]; !builtin {
				return match // unknown tag, leave untouched
			}
		}
		if value == "" {
			return "[" + placeholderName(tag) + "]"
		}
		return value
	})
}
