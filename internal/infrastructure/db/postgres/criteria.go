package postgres

import (
	"fmt"
	"strings"

	"github.com/99minutos/identity-service/internal/core/ports"
)

var criterionColumns = map[ports.Field]string{
	ports.FieldRole:      "role",
	ports.FieldFirstName: "first_name",
	ports.FieldLastName:  "last_name",
	ports.FieldEmail:     "email",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// whereClause renders criteria as an AND-joined WHERE clause. Placeholders
// are numbered after the len(args) arguments already bound.
func whereClause(criteria []ports.Criterion, args []any) (string, []any) {
	if len(criteria) == 0 {
		return "", args
	}

	parts := make([]string, 0, len(criteria))
	for _, c := range criteria {
		col, ok := criterionColumns[c.Field]
		if !ok {
			parts = append(parts, "FALSE")
			continue
		}
		switch c.Operator {
		case ports.OpEquals:
			args = append(args, c.Value)
			parts = append(parts, fmt.Sprintf("%s = $%d", col, len(args)))
		case ports.OpContainsFold:
			args = append(args, "%"+likeEscaper.Replace(c.Value)+"%")
			parts = append(parts, fmt.Sprintf(`%s ILIKE $%d ESCAPE '\'`, col, len(args)))
		default:
			parts = append(parts, "FALSE")
		}
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}
