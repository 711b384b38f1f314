package awsutil

import "github.com/mongodb/grip/message"

// MakeAPILogMessage creates a message to log information about an API call.
// The input must not contain secret values.
func MakeAPILogMessage(funcName string, input interface{}) message.Fields {
	return message.Fields{
		"message":  "AWS API call",
		"api_name": funcName,
		"args":     input,
	}
}
