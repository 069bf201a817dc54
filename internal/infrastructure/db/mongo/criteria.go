package mongo

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/99minutos/identity-service/internal/core/ports"
)

// criteriaFilter folds criteria into a single $and document. Document field
// names are the criterion field names.
func criteriaFilter(criteria []ports.Criterion) bson.M {
	if len(criteria) == 0 {
		return bson.M{}
	}
	clauses := make(bson.A, 0, len(criteria))
	for _, c := range criteria {
		clauses = append(clauses, criterionClause(c))
	}
	return bson.M{"$and": clauses}
}

func criterionClause(c ports.Criterion) bson.M {
	field := string(c.Field)
	switch c.Operator {
	case ports.OpEquals:
		return bson.M{field: c.Value}
	case ports.OpContainsFold:
		return bson.M{field: primitive.Regex{Pattern: regexp.QuoteMeta(c.Value), Options: "i"}}
	}
	// Unknown operators match nothing.
	return bson.M{"_id": bson.M{"$exists": false}}
}
