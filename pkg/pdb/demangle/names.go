package demangle

// operators maps ?X operator codes to their spelling.
var operators = map[byte]string{
	'2': "operator new",
	'3': "operator delete",
	'4': "operator=",
	'5': "operator>>",
	'6': "operator<<",
	'7': "operator!",
	'8': "operator==",
	'9': "operator!=",
	'A': "operator[]",
	'B': "operator cast",
	'C': "operator->",
	'D': "operator*",
	'E': "operator++",
	'F': "operator--",
	'G': "operator-",
	'H': "operator+",
	'I': "operator&",
	'J': "operator->*",
	'K': "operator/",
	'L': "operator%",
	'M': "operator<",
	'N': "operator<=",
	'O': "operator>",
	'P': "operator>=",
	'Q': "operator,",
	'R': "operator()",
	'S': "operator~",
	'T': "operator^",
	'U': "operator|",
	'V': "operator&&",
	'W': "operator||",
	'X': "operator*=",
	'Y': "operator+=",
	'Z': "operator-=",
}

// extendedOperators maps ?_X operator codes.
var extendedOperators = map[byte]string{
	'0': "operator/=",
	'1': "operator%=",
	'2': "operator>>=",
	'3': "operator<<=",
	'4': "operator&=",
	'5': "operator|=",
	'6': "operator^=",
	'U': "operator new[]",
	'V': "operator delete[]",
}

// specialNames maps ?_X codes of compiler-generated symbols.
var specialNames = map[byte]string{
	'7': "`vftable'",
	'8': "`vbtable'",
	'9': "`vcall'",
	'A': "`typeof'",
	'B': "`local static guard'",
	'C': "`string'",
	'D': "`vbase destructor'",
	'E': "`vector deleting destructor'",
	'F': "`default constructor closure'",
	'G': "`scalar deleting destructor'",
	'H': "`vector constructor iterator'",
	'I': "`vector destructor iterator'",
	'J': "`vector vbase constructor iterator'",
	'K': "`virtual displacement map'",
	'L': "`eh vector constructor iterator'",
	'M': "`eh vector destructor iterator'",
	'N': "`eh vector vbase constructor iterator'",
	'O': "`copy constructor closure'",
	'S': "`local vftable'",
	'T': "`local vftable constructor closure'",
	'X': "`placement delete closure'",
	'Y': "`placement delete[] closure'",
}

// doubleUnderscoreNames maps ?__X codes.
var doubleUnderscoreNames = map[byte]string{
	'E': "`dynamic initializer'",
	'F': "`dynamic atexit destructor'",
	'J': "`local static thread guard'",
}
