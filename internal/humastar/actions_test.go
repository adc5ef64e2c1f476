package humastar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActionsFor(t *testing.T) {
	actions := ActionsFor("ab12", []ActionDef{
		{Rel: "install", Pattern: "/api/v1/snapshots/%s/install", Method: "POST", Title: "Install snapshot"},
		{Rel: "delete", Pattern: "/api/v1/snapshots/%s", Method: "DELETE"},
	})
	assert.Len(t, actions, 2)
	assert.Equal(t, `</api/v1/snapshots/ab12/install>; rel="install"; method="POST"; title="Install snapshot"`, actions[0].LinkHeader())
	assert.Equal(t, `</api/v1/snapshots/ab12>; rel="delete"; method="DELETE"`, actions[1].LinkHeader())
}

func TestLinksAddDedupes(t *testing.T) {
	l := Links{}
	l.Add("/health", "/api/v1/info", "info")
	l.Add("/health", "/api/v1/info", "info")
	l.Add("/health", "/openapi.json", "service-desc")
	assert.Equal(t, []string{
		`</api/v1/info>; rel="info"`,
		`</openapi.json>; rel="service-desc"`,
	}, l["/health"])
}
