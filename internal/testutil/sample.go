package testutil

import "bytes"

// SampleGUID is the signature GUID of SamplePDB as stored on disk; it reads
// back as 12345678-1234-5678-9abc-def001020304.
var SampleGUID = [16]byte{0x78, 0x56, 0x34, 0x12, 0x34, 0x12, 0x78, 0x56, 0x9a, 0xbc, 0xde, 0xf0, 0x01, 0x02, 0x03, 0x04}

// Sample image values.
const (
	SampleTimestamp = 0x5f000000
	SampleSource    = `C:\src\main.cpp`
	SampleObject    = `C:\obj\main.obj`

	machineAMD64        = 0x8664
	debugSFileChecksums = 0xf4
	checksumSHA1        = 2
	primitiveInt32      = 0x74
)

// SamplePDB lays out a small but complete PDB for a program with
//
//	struct Node { Node* next; int value; };
//	Node g_list;
//	int main(int);
//
// main.obj contributes the first 0x100 bytes of .text.
//
// MSF streams: 1 PDB info (/names at 6), 2 TPI, 3 DBI, 4 empty IPI,
// 5 main.obj, 6 /names, 7 section headers (.text at 0x1000, .data at
// 0x3000), 8 global symbols.
func SamplePDB() []byte {
	names, offsets := StringTableImage(SampleSource)

	modSyms := Cat(
		ObjName(SampleObject),
		Compile3(0x01, 0xd0, [4]uint16{19, 36, 1, 0}, [4]uint16{19, 36, 1, 0}, "MSVC"),
		Proc{Name: "main", Segment: 1, Offset: 0x10, Length: 0x20, DbgStart: 4, DbgEnd: 0x1c, Type: 0x1005}.Bytes(),
		Symbol(SEnd),
	)
	c13 := C13Subsection(debugSFileChecksums,
		ChecksumEntry(offsets[SampleSource], checksumSHA1, bytes.Repeat([]byte{0x5a}, 20)))
	mod, symBytes, c13Bytes := ModuleStreamImage(modSyms, c13)

	globals := Cat(
		Public(PubFunction, 1, 0x10, "main"),
		Data(SGData32, 0x1003, 2, 0x8, "g_list"),
	)

	tpi := TPIImage(0x1000,
		Struct(0, PropForwardRef, 0, 0, "Node", ""),
		Ptr64(0x1000),
		FieldList(
			Member(AccessPublic, 0x1001, 0, "next"),
			Member(AccessPublic, primitiveInt32, 8, "value"),
		),
		Struct(2, 0, 0x1002, 16, "Node", ""),
		ArgList(primitiveInt32),
		Procedure(primitiveInt32, 0, 1, 0x1004),
	)

	return MSFImage(512,
		nil, // old directory
		PDBInfoImage(SampleTimestamp, 2, SampleGUID, map[string]uint32{"/names": 6}),
		tpi,
		DBIImage(machineAMD64, 8, 7, DBIModule{
			Name:       "main.obj",
			ObjectFile: SampleObject,
			Stream:     5,
			SymBytes:   symBytes,
			C13Bytes:   c13Bytes,
			Contribs:   []Contrib{{Section: 1, Offset: 0, Size: 0x100}},
		}),
		nil, // IPI
		mod,
		names,
		SectionHeadersImage(0x1000, 0x3000),
		globals,
	)
}
