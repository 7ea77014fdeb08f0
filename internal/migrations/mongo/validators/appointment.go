package validators

import "go.mongodb.org/mongo-driver/bson"

var AppointmentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"doctor_id",
			"patient_id",
			"patient_name",
			"time",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"doctor_id": bson.M{
				"bsonType": "string",
			},

			"patient_id": bson.M{
				"bsonType": "string",
			},

			"patient_name": bson.M{
				"bsonType": "string",
			},

			"doctor_name": bson.M{
				"bsonType": "string",
			},

			"time": bson.M{
				"bsonType": "string",
			},

			"date": bson.M{
				"bsonType": "date",
			},

			"formatted_date": bson.M{
				"bsonType": "object",
			},

			"status": bson.M{
				"enum": []string{"upcoming", "completed", "cancelled"},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
