// Package serialization provides the private binary format used to persist
// volumes, trainers, sessions and agents.
//
//	Format Structure:
//	  [4 bytes: Magic "VNET"]
//	  [4 bytes: Version (uint32 LE)]
//	  [4 bytes: Flags (uint32 LE)]
//	  [8 bytes: Body Size (uint64 LE)]
//	  [Body: protobuf wire-format record]
//	  [32 bytes: SHA-256 of the body]
//
// The body is a single record encoded with protowire. Each persisted type
// owns its field numbers; nested values are length-delimited sub-records.
// There is no schema evolution: readers check only magic, version and
// checksum.
//
// Example usage:
//
//	var rec serialization.Record
//	serialization.PutVolume(&rec, 1, v)
//	if err := serialization.WriteContainer(w, serialization.KindVolume, rec.Bytes()); err != nil {
//	    return err
//	}
//
//	body, err := serialization.ReadKind(r, serialization.KindVolume)
//	fields, err := serialization.Parse(body)
//	v := serialization.GetVolume(fields, 1)
//	if err := fields.Err(); err != nil {
//	    return err
//	}
package serialization
