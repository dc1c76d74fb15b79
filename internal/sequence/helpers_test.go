package sequence

import (
	"fmt"
	"testing"

	"github.com/Veraticus/p300-cit/internal/catalog"
	"github.com/Veraticus/p300-cit/internal/config"
	"github.com/stretchr/testify/require"
)

// standardProtocol is one probe and four irrelevant objects, two views each,
// 80 repetitions per object in blocks of 80.
func standardProtocol(t *testing.T) (config.Protocol, *catalog.Catalog) {
	t.Helper()

	p := config.DefaultProtocol()
	p.Objects = []config.ObjectDecl{
		{Name: "pendrive", Category: "probe", Views: 2},
		{Name: "mouse", Category: "irrelevant", Views: 2},
		{Name: "wallet", Category: "irrelevant", Views: 2},
		{Name: "watch", Category: "irrelevant", Views: 2},
		{Name: "keys", Category: "irrelevant", Views: 2},
	}

	c, err := catalog.Build(p, nil)
	require.NoError(t, err)
	return p, c
}

func objectsWithViews(views ...int) []config.ObjectDecl {
	decls := make([]config.ObjectDecl, len(views))
	for i, v := range views {
		category := "irrelevant"
		if i == 0 {
			category = "probe"
		}
		decls[i] = config.ObjectDecl{Name: fmt.Sprintf("obj%d", i), Category: category, Views: v}
	}
	return decls
}
