package textnorm

// Locale data for speech normalization. Keys are abbreviation surface forms,
// values are the spoken expansion fed to the synthesizer. The tables are a
// data asset: extend them freely, the matching logic does not change.

var abbreviations = map[string]map[string]string{
	"en": {
		// Chat and general shorthand.
		"ASAP":  "as soon as possible",
		"BTW":   "by the way",
		"FYI":   "for your information",
		"LOL":   "laugh out loud",
		"OMG":   "oh my god",
		"BRB":   "be right back",
		"TTYL":  "talk to you later",
		"LMK":   "let me know",
		"NVM":   "never mind",
		"IMO":   "in my opinion",
		"IMHO":  "in my humble opinion",
		"AFAIK": "as far as I know",
		"TBH":   "to be honest",
		"THX":   "thanks",
		"TY":    "thank you",
		"YOLO":  "you only live once",
		"AFK":   "away from keyboard",
		"IRL":   "in real life",
		"JK":    "just kidding",
		"IDK":   "I don't know",
		"NGL":   "not gonna lie",
		"FWIW":  "for what it's worth",
		"RN":    "right now",
		"GTG":   "got to go",
		"BC":    "because",
		"FOMO":  "fear of missing out",
		"POV":   "point of view",
		"TBA":   "to be announced",
		"TBD":   "to be decided",
		"DIY":   "do it yourself",
		"NBD":   "no big deal",
		"EOD":   "end of day",
		"COB":   "close of business",
		"ETA":   "estimated time of arrival",
		"FAQ":   "frequently asked questions",
		"AKA":   "also known as",
		"NP":    "no problem",
		"N/A":   "not applicable",
		"OOO":   "out of office",
		"TIA":   "thanks in advance",
		"WFH":   "work from home",
		"OMW":   "on my way",
		"TIL":   "today I learned",
		"AMA":   "ask me anything",
		"HBD":   "happy birthday",
		"GOAT":  "greatest of all time",
		"DM":    "direct message",
		"OP":    "original poster",

		// Business.
		"B2B":    "business to business",
		"B2C":    "business to consumer",
		"CEO":    "chief executive officer",
		"CFO":    "chief financial officer",
		"COO":    "chief operating officer",
		"HR":     "human resources",
		"PR":     "public relations",
		"KPI":    "key performance indicator",
		"ROI":    "return on investment",
		"UX":     "user experience",
		"UI":     "user interface",
		"CRM":    "customer relationship management",
		"SaaS":   "software as a service",
		"TOS":    "terms of service",
		"SLA":    "service level agreement",
		"R&D":    "research and development",
		"NDA":    "non-disclosure agreement",
		"WIP":    "work in progress",
		"POC":    "proof of concept",
		"EBITDA": "earnings before interest, taxes, depreciation, and amortization",

		// Technology, usually read letter by letter.
		"HTML":  "H T M L",
		"CSS":   "C S S",
		"HTTP":  "H T T P",
		"HTTPS": "H T T P S",
		"URL":   "U R L",
		"VPN":   "V P N",
		"USB":   "U S B",
		"Wi-Fi": "wi fi",
		"AI":    "A I",
		"ML":    "M L",
		"API":   "A P I",
		"CPU":   "C P U",
		"RAM":   "R A M",
		"PDF":   "P D F",
		"JPEG":  "jay peg",
		"SMS":   "S M S",
		"GPS":   "G P S",
		"CD":    "C D",
		"DVD":   "D V D",
		"NASA":  "NASA",
		"NATO":  "NATO",
		"FBI":   "F B I",
		"CIA":   "C I A",
		"UN":    "U N",
		"EU":    "E U",
		"WWW":   "world wide web",

		// Shortened words.
		"abt":   "about",
		"b/c":   "because",
		"cuz":   "because",
		"thru":  "through",
		"gr8":   "great",
		"l8r":   "later",
		"pls":   "please",
		"plz":   "please",
		"u":     "you",
		"ur":    "your",
		"r":     "are",
		"msg":   "message",
		"pic":   "picture",
		"info":  "information",
		"vid":   "video",
		"yr":    "year",
		"wk":    "week",
		"bday":  "birthday",
		"bro":   "brother",
		"sis":   "sister",
		"fam":   "family",
		"srsly": "seriously",
		"kinda": "kind of",
		"sorta": "sort of",

		// Symbols and dotted forms.
		"&":       "and",
		"@":       "at",
		"w/":      "with",
		"w/o":     "without",
		"Dr.":     "doctor",
		"Mr.":     "mister",
		"Mrs.":    "missus",
		"Ms.":     "miss",
		"St.":     "saint",
		"Ave.":    "avenue",
		"Rd.":     "road",
		"Blvd.":   "boulevard",
		"P.S.":    "postscript",
		"e.g.":    "for example",
		"i.e.":    "that is",
		"vs.":     "versus",
		"etc.":    "et cetera",
		"approx.": "approximately",
		"max.":    "maximum",
		"min.":    "minimum",
		"vol.":    "volume",
		"fig.":    "figure",
		"chap.":   "chapter",
		"p.":      "page",
		"pp.":     "pages",
		"No.":     "number",
		"Cpt.":    "captain",
		"Lt.":     "lieutenant",
		"Gen.":    "general",
		"Col.":    "colonel",
		"Sgt.":    "sergeant",
		"A.M.":    "A M",
		"P.M.":    "P M",
		"B.C.":    "B C",
		"A.D.":    "A D",
		"Ltd.":    "limited",
		"Inc.":    "incorporated",
		"Co.":     "company",
		"Corp.":   "corporation",
		"Dept.":   "department",
		"Jan.":    "january",
		"Feb.":    "february",
		"Mar.":    "march",
		"Apr.":    "april",
		"Jun.":    "june",
		"Jul.":    "july",
		"Aug.":    "august",
		"Sep.":    "september",
		"Oct.":    "october",
		"Nov.":    "november",
		"Dec.":    "december",
		"Mon.":    "monday",
		"Tue.":    "tuesday",
		"Wed.":    "wednesday",
		"Thu.":    "thursday",
		"Fri.":    "friday",
		"Sat.":    "saturday",
		"Sun.":    "sunday",
	},
	"pl": {
		// Common shorthand.
		"np.":    "na przykład",
		"m.in.":  "między innymi",
		"itd.":   "i tak dalej",
		"itp.":   "i tym podobne",
		"tzn.":   "to znaczy",
		"tj.":    "to jest",
		"wg":     "według",
		"tzw.":   "tak zwany",
		"ds.":    "do spraw",
		"cdn.":   "ciąg dalszy nastąpi",
		"cd.":    "ciąg dalszy",
		"ww.":    "wyżej wymieniony",
		"jw.":    "jak wyżej",
		"br.":    "bieżącego roku",
		"p.n.e.": "przed naszą erą",
		"n.e.":   "naszej ery",
		"PS":     "post scriptum",
		"vs":     "versus",
		"etc.":   "et cetera",
		"pt.":    "pod tytułem",
		"zob.":   "zobacz",
		"por.":   "porównaj",
		"red.":   "redakcja",
		"p.o.":   "pełniący obowiązki",

		// Titles and honorifics.
		"dr":        "doktor",
		"prof.":     "profesor",
		"mgr":       "magister",
		"inż.":      "inżynier",
		"hab.":      "habilitowany",
		"lek.":      "lekarz",
		"płk":       "pułkownik",
		"gen.":      "generał",
		"ks.":       "ksiądz",
		"św.":       "świętego",
		"dyr.":      "dyrektor",
		"prez.":     "prezydent",
		"s.a.":      "spółka akcyjna",
		"sp. z o.o.": "spółka zoo",
		"sp.":       "spółka",
		"z o.o.":    "zo",

		// Units.
		"zł":    "złotych",
		"gr":    "groszy",
		"kg":    "kilogram",
		"dag":   "dekagram",
		"km":    "kilometr",
		"m":     "metr",
		"cm":    "centymetr",
		"mm":    "milimetr",
		"ml":    "mililitr",
		"godz.": "godzina",
		"min.":  "minuta",
		"proc.": "procent",
		"°C":    "stopni Celsjusza",
		"km/h":  "kilometrów na godzinę",
		"hPa":   "hektopaskali",
		"kcal":  "kilokalorii",

		// Institutions.
		"NFZ":  "en ef zet",
		"NBP":  "en be pe",
		"PKP":  "pe ka pe",
		"PKO":  "pe kao",
		"PZU":  "pe zet u",
		"AGH":  "a gie ha",
		"UW":   "u wu",
		"UJ":   "u jot",
		"ONZ":  "o en zet",
		"UE":   "unia europejska",
		"USA":  "u es a",
		"IPN":  "i pe en",
		"TVP":  "te fau pe",
		"TVN":  "te fau en",
		"KRS":  "ka er es",
		"RP":   "er pe",
		"PRL":  "pe er el",
		"NATO": "nato",
		"ZSRR": "zet es er er",
		"AK":   "Armia Krajowa",

		// Technology, business, medicine.
		"VAT":  "wat",
		"PKB":  "pe ka be",
		"BHP":  "be ha pe",
		"ISBN": "i es be en",
		"GPS":  "gie pe es",
		"AGD":  "a gie de",
		"RTV":  "er te fau",
		"PC":   "pe cet",
		"IT":   "aj ti",
		"AI":   "ejaj",
		"WWW":  "wu wu wu",
		"SMS":  "es em es",
		"URL":  "u er el",
		"HDMI": "ha de em i",
		"USB":  "u es be",
		"Wi-Fi": "wi fi",
		"CD":   "si di",
		"DVD":  "di wi di",
		"VIP":  "wip",
		"CV":   "si wi",
		"FAQ":  "najczęściej zadawane pytania",
		"ASAP": "jak najszybciej",
		"CEO":  "si i oł",
		"HR":   "ha er",
		"PR":   "pi ar",
		"IQ":   "aj kju",
		"EKG":  "e ka gie",
		"RTG":  "er te gie",
		"USG":  "u es gie",
		"DNA":  "de en a",
		"AIDS": "ejds",
		"HIV":  "hiw",
		"LED":  "led",
		"LCD":  "el si di",
		"UFO":  "ufo",
		"R&D":  "arendi",

		// Slang and messaging.
		"thx":  "dzięki",
		"btw":  "przy okazji",
		"omg":  "o mój boże",
		"lol":  "lol",
		"wgl":  "w ogóle",
		"cb":   "ciebie",
		"sb":   "sobie",
		"kc":   "kocham cię",
		"wf":   "wu ef",
		"xd":   "iks de",
		"wawa": "warszawa",
		"krk":  "kraków",
		"wro":  "wrocław",
		"tbh":  "szczerze powiedziawszy",
		"imho": "moim skromnym zdaniem",
		"nvm":  "nieważne",
		"idk":  "nie wiem",
		"sql":  "es ku el",
		"js":   "dżejes",
		"css":  "ce es es",
		"html": "ha te em el",

		// Addresses and legal references.
		"ul.":   "ulica",
		"al.":   "aleja",
		"os.":   "osiedle",
		"pl.":   "plac",
		"woj.":  "województwo",
		"pow.":  "powiat",
		"gm.":   "gmina",
		"płn.":  "północny",
		"płd.":  "południowy",
		"wsch.": "wschodni",
		"zach.": "zachodni",
		"m.st.": "miasto stołeczne",
		"art.":  "artykuł",
		"ust.":  "ustęp",
		"par.":  "paragraf",
		"pkt":   "punkt",
		"nr":    "numer",
		"r.":    "rok",
		"w.":    "wiek",
		"s.":    "strona",
		"str.":  "strona",
		"t.":    "tom",

		// Enumerations.
		"1.":  "Po pierwsze.",
		"2.":  "Po drugie.",
		"3.":  "Po trzecie.",
		"4.":  "Po czwarte.",
		"5.":  "Po piąte.",
		"6.":  "Po szóste.",
		"7.":  "Po siódme.",
		"8.":  "Po ósme.",
		"9.":  "Po dziewiąte.",
		"10.": "Po dziesiąte.",
	},
}

// Character allow-lists per locale. Everything outside the class collapses to
// a single space before synthesis.
var nonStandardChars = map[string]string{
	"en": `[^A-Za-z0-9 ,.:;?!\-–]+`,
	"pl": `[^A-Za-z0-9 ,.:;?!ąćęłńóśźżĄĆĘŁŃÓŚŹŻ\-–]+`,
}

// Coordinating conjunctions used as soft break points by the phrase chunker.
var conjunctions = map[string][]string{
	"en": {"and", "but", "or", "nor", "for", "yet", "so"},
	"pl": {"i", "a", "ale", "oraz", "albo", "lub", "ani", "więc", "czyli"},
}
