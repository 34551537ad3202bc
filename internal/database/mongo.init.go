package database

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"cdr_api/internal/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureCollection creates the collection when the database does not have it yet.
func EnsureCollection(ctx context.Context, db *mongo.Database, name string) error {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	if len(names) > 0 {
		return nil
	}

	logger.WithCollection(name).Info("Collection does not exist, creating it")
	if err := db.CreateCollection(ctx, name); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	return nil
}

// IndexSpec is one index declared through `index` struct tags.
type IndexSpec struct {
	Name   string
	Keys   bson.D
	Unique bool
}

// parseOrder returns -1 when the tag part asks for a descending key.
func parseOrder(part map[string]string) int {
	if part["order"] == "-1" {
		return -1
	}
	return 1
}

// parseIndexTag splits `single,order:-1;compound:name` into key/value maps,
// one per `;`-separated part.
func parseIndexTag(tag string) []map[string]string {
	var result []map[string]string
	for _, part := range strings.Split(tag, ";") {
		entry := map[string]string{}
		for _, sub := range strings.Split(part, ",") {
			sub = strings.TrimSpace(sub)
			if sub == "" {
				continue
			}
			k, v, _ := strings.Cut(sub, ":")
			entry[k] = v
		}
		if len(entry) > 0 {
			result = append(result, entry)
		}
	}
	return result
}

// IndexSpecs reads the `index` tags of model. Supported keys:
//
//	single            one-field index named <field>_single
//	compound:<name>   field joins the compound index <name>, in field order;
//	                  names containing "_unique" are unique
//	order:-1          descending key for single/compound
func IndexSpecs(model interface{}) ([]IndexSpec, error) {
	modelType := reflect.TypeOf(model)
	if modelType.Kind() == reflect.Ptr {
		modelType = modelType.Elem()
	}

	var specs []IndexSpec
	compound := map[string]*IndexSpec{}
	var compoundOrder []string

	for i := 0; i < modelType.NumField(); i++ {
		field := modelType.Field(i)
		tag, ok := field.Tag.Lookup("index")
		if !ok {
			continue
		}
		bsonField, _, _ := strings.Cut(field.Tag.Get("bson"), ",")
		if bsonField == "" || bsonField == "-" {
			continue
		}

		for _, cfg := range parseIndexTag(tag) {
			order := parseOrder(cfg)

			if _, ok := cfg["single"]; ok {
				specs = append(specs, IndexSpec{
					Name: bsonField + "_single",
					Keys: bson.D{{Key: bsonField, Value: order}},
				})
			}
			if group, ok := cfg["compound"]; ok {
				spec, exists := compound[group]
				if !exists {
					spec = &IndexSpec{Name: group, Unique: strings.Contains(group, "_unique")}
					compound[group] = spec
					compoundOrder = append(compoundOrder, group)
				}
				spec.Keys = append(spec.Keys, bson.E{Key: bsonField, Value: order})
			}
		}
	}

	sort.Strings(compoundOrder)
	for _, group := range compoundOrder {
		specs = append(specs, *compound[group])
	}
	return specs, nil
}

func indexOptions(spec IndexSpec) *options.IndexOptions {
	opts := options.Index().SetName(spec.Name)
	if spec.Unique {
		opts.SetUnique(true)
	}
	return opts
}

// sameIndex compares an existing index document with a spec.
func sameIndex(existing bson.M, spec IndexSpec) bool {
	keys, ok := existing["key"].(bson.M)
	if !ok || len(keys) != len(spec.Keys) {
		return false
	}
	for _, k := range spec.Keys {
		v, exists := keys[k.Key]
		if !exists || toInt(v) != k.Value.(int) {
			return false
		}
	}

	unique, _ := existing["unique"].(bool)
	return unique == spec.Unique
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}

// CreateIndexes makes the collection's indexes match the `index` tags of model,
// dropping and recreating any index whose definition changed.
func CreateIndexes(ctx context.Context, collection *mongo.Collection, model interface{}) error {
	log := logger.WithCollection(collection.Name())

	specs, err := IndexSpecs(model)
	if err != nil {
		return err
	}

	cursor, err := collection.Indexes().List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list indexes: %w", err)
	}
	defer cursor.Close(ctx)

	existing := map[string]bson.M{}
	for cursor.Next(ctx) {
		var info bson.M
		if err := cursor.Decode(&info); err != nil {
			return fmt.Errorf("failed to decode index info: %w", err)
		}
		if name, ok := info["name"].(string); ok {
			existing[name] = info
		}
	}

	for _, spec := range specs {
		if current, ok := existing[spec.Name]; ok {
			if sameIndex(current, spec) {
				log.Debugf("Index %s is up to date", spec.Name)
				continue
			}
			if _, err := collection.Indexes().DropOne(ctx, spec.Name); err != nil {
				return fmt.Errorf("failed to drop index %s: %w", spec.Name, err)
			}
			log.Infof("Dropped outdated index %s", spec.Name)
		}

		if _, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    spec.Keys,
			Options: indexOptions(spec),
		}); err != nil {
			return fmt.Errorf("failed to create index %s: %w", spec.Name, err)
		}
		log.Infof("Created index %s", spec.Name)
	}
	return nil
}
