// Package formats reads and writes the model containers weightfix repairs:
// PMX models and glTF 2.0 documents.
package formats
