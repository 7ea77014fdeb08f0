package validators

import "go.mongodb.org/mongo-driver/bson"

// Doctor records can be materialized as placeholders before a profile is
// filled in, so everything beyond the name stays optional and the array
// fields also accept null.
var DoctorValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"name",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"name": bson.M{
				"bsonType":  "string",
				"maxLength": 100,
			},

			"specialization": bson.M{
				"bsonType":  "string",
				"maxLength": 100,
			},

			"slots_available": bson.M{
				"bsonType": []string{"array", "null"},
			},

			"bookings": bson.M{
				"bsonType": []string{"array", "null"},
			},

			"user_id": bson.M{
				"bsonType": "string",
			},

			"revision": bson.M{
				"bsonType": []string{"long", "int"},
			},

			"last_updated": bson.M{
				"bsonType": "date",
			},

			"last_swept": bson.M{
				"bsonType": "date",
			},
		},
	},
}
