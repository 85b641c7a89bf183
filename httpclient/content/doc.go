// Package content implements the body parts of a request descriptor and the
// read-once view of a received body.
//
// A part is one of Text, JSON, Binary, Stream or Raw. Materialize turns a
// part into a Wire: the body reader, its content headers, and a GetBody
// func when the body can be replayed for retries. Several parts are
// combined with Multipart.
package content
