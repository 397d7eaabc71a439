package utiljson

import (
	"encoding/json"
	"io"
)

func ToJson(v interface{}) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// Write печатает v в w с переводом строки
func Write(w io.Writer, v interface{}) error {
	data, err := ToJson(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
