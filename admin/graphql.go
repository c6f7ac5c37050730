package admin

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/graphql-go/graphql"
)

// statusSnapshot is the structured form of pool.Pool.Status()'s
// rendered "<name> size=<n> checked_out=<n> overflow=<n>" line (spec
// §6.4). admin re-parses it rather than asking pool for a second,
// struct-shaped accessor, since status() -> string is the one surface
// the spec actually names.
type statusSnapshot struct {
	Name      string `json:"name"`
	Size      int    `json:"size"`
	Checked   int    `json:"checkedOut"`
	Overflow  int    `json:"overflow"`
}

var statusPattern = regexp.MustCompile(`^(\S+) size=(-?\d+) checked_out=(-?\d+) overflow=(-?\d+)$`)

func parseStatus(line string) (statusSnapshot, error) {
	m := statusPattern.FindStringSubmatch(line)
	if m == nil {
		return statusSnapshot{}, fmt.Errorf("admin: unrecognized status line %q", line)
	}

	size, err := strconv.Atoi(m[2])
	if err != nil {
		return statusSnapshot{}, err
	}
	checked, err := strconv.Atoi(m[3])
	if err != nil {
		return statusSnapshot{}, err
	}
	overflow, err := strconv.Atoi(m[4])
	if err != nil {
		return statusSnapshot{}, err
	}

	return statusSnapshot{Name: m[1], Size: size, Checked: checked, Overflow: overflow}, nil
}

// statusType mirrors pkg/graphql/schema.go's pattern of wrapping a Go
// struct in a graphql.Object: one field per exported value, no
// resolvers of their own since graphql-go's default field resolver
// already reads struct fields by matching name.
var statusType = graphql.NewObject(graphql.ObjectConfig{
	Name:        "PoolStatus",
	Description: "A snapshot of a pool's strategy bookkeeping",
	Fields: graphql.Fields{
		"name": &graphql.Field{
			Type:        graphql.NewNonNull(graphql.String),
			Description: "Strategy name",
		},
		"size": &graphql.Field{
			Type:        graphql.NewNonNull(graphql.Int),
			Description: "Configured pool size",
		},
		"checkedOut": &graphql.Field{
			Type:        graphql.NewNonNull(graphql.Int),
			Description: "Records currently checked out",
		},
		"overflow": &graphql.Field{
			Type:        graphql.NewNonNull(graphql.Int),
			Description: "Overflow records currently open beyond the base pool size",
		},
	},
})

// buildSchema wraps status in a single-field "status" query, the
// minimal GraphQL surface spec's status() snapshot warrants.
func buildSchema(status StatusProvider) (graphql.Schema, error) {
	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"status": &graphql.Field{
				Type:        statusType,
				Description: "The pool's current status snapshot",
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return parseStatus(status.Status())
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
}
