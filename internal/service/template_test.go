package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lumeocrm/campaign-service/internal/model"
	"github.com/lumeocrm/campaign-service/internal/service"
)

func TestRenderTemplateSubstitutesMergeTags(t *testing.T) {
	rec := model.Recipient{
		Email: "alice@example.com",
		MergeFields: map[string]string{
			"firstName": "Alice",
			"lastName":  "Smith",
			"company":   "Acme Ltd",
		},
	}

	out := service.RenderTemplate("Hi {first_name} {last_name} from {company}!", rec, model.SenderIdentity{}, "")
	assert.Equal(t, "Hi Alice Smith from Acme Ltd!", out)
}

func TestRenderTemplateSpellingsAreEquivalent(t *testing.T) {
	rec := model.Recipient{MergeFields: map[string]string{"first_name": "Bob"}}
	sender := model.SenderIdentity{}

	snake := service.RenderTemplate("Hello {first_name}", rec, sender, "")
	camel := service.RenderTemplate("Hello {firstName}", rec, sender, "")
	assert.Equal(t, snake, camel)
	assert.Equal(t, "Hello Bob", snake)
}

func TestRenderTemplateMissingFieldGetsPlaceholder(t *testing.T) {
	rec := model.Recipient{MergeFields: map[string]string{}}

	out := service.RenderTemplate("Hi {first_name}!", rec, model.SenderIdentity{}, "")
	assert.Equal(t, "Hi [FirstName]!", out)

	// an empty value behaves the same as an absent one
	rec.MergeFields["firstName"] = ""
	out = service.RenderTemplate("Hi {firstName}!", rec, model.SenderIdentity{}, "")
	assert.Equal(t, "Hi [FirstName]!", out)
}

func TestRenderTemplateUnknownTagLeftUntouched(t *testing.T) {
	rec := model.Recipient{MergeFields: map[string]string{"firstName": "Alice"}}

	out := service.RenderTemplate("{first_name} {not_a_field}", rec, model.SenderIdentity{}, "")
	assert.Equal(t, "Alice {not_a_field}", out)
}

func TestRenderTemplateSenderName(t *testing.T) {
	rec := model.Recipient{}

	out := service.RenderTemplate("Cheers, {sender_name}", rec, model.SenderIdentity{DisplayName: "Lumeo CRM"}, "")
	assert.Equal(t, "Cheers, Lumeo CRM", out)

	out = service.RenderTemplate("Cheers, {sender_name}", rec, model.SenderIdentity{}, "Support")
	assert.Equal(t, "Cheers, Support", out)

	out = service.RenderTemplate("Cheers, {sender_name}", rec, model.SenderIdentity{}, "")
	assert.Equal(t, "Cheers, "+service.DefaultSenderName, out)
}

func TestRenderTemplateIsIdempotent(t *testing.T) {
	rec := model.Recipient{
		Email:       "alice@example.com",
		MergeFields: map[string]string{"firstName": "Alice", "company": ""},
	}
	sender := model.SenderIdentity{DisplayName: "Lumeo"}
	template := "Hi {firstName} of {company}, {unknown_tag} - {sender_name} ({email})"

	first := service.RenderTemplate(template, rec, sender, "")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, service.RenderTemplate(template, rec, sender, ""))
	}
}
