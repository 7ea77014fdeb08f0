package validators

import "go.mongodb.org/mongo-driver/bson"

var UserValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"name",
			"email",
			"user_type",
			"password_hash",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"email": bson.M{
				"bsonType": "string",
				"pattern":  "^[^@\\s]+@[^@\\s]+\\.[^@\\s]+$",
			},

			"user_type": bson.M{
				"enum": []string{"patient", "doctor"},
			},

			"password_hash": bson.M{
				"bsonType": "string",
			},

			"specialization": bson.M{
				"bsonType":  "string",
				"maxLength": 100,
			},

			"slots_available": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "string",
				},
			},

			"bookings": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "object",
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
