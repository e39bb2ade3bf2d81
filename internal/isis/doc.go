// Package isis reads CDS/ISIS master file exports in their ISO-2709 form.
//
// An ISIS ISO file is a sequence of records, each made of a 24 byte leader,
// a directory of 12 byte entries (tag, length, offset) and the field data.
// Exports produced by the ISIS tools wrap the byte stream in 80 column lines
// and terminate fields and records with '#'. The reader accepts both the
// ISIS terminators and the standard ISO-2709 ones (0x1E, 0x1D), and ignores
// line breaks.
//
// Field values use the ISIS subfield notation:
//
//	Primary value^aFirst subfield^bSecond subfield
//
// which decodes to the occurrence {"_": "Primary value", "a": "First subfield",
// "b": "Second subfield"}.
package isis
