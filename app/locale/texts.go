package locale

var spanish = &language{
	texts: map[Key]string{
		Greeting:         "Hola, soy %s. Di mi nombre cuando me necesites.",
		WakeResponse:     "¿Sí? ¿En qué puedo ayudarte?",
		SleepResponse:    "Hasta luego. Estaré aquí si me necesitas.",
		ShutdownResponse: "Apagando sistemas. Adiós.",
		StoppedResponse:  "Detenido.",
		ErrorGeneric:     "Lo siento, ocurrió un error.",
		LLMApology:       "Lo siento, tuve un problema al procesar tu solicitud.",
		MappingStart:     "Iniciando mapeo del sistema. Esto puede tardar unos minutos.",
		MappingEnd:       "Mapeo completado. %d carpetas indexadas.",
		MappingFailed:    "No pude completar el mapeo de carpetas.",
		OpenGUI:          "El panel de configuración está en %s.",
		GUIError:         "El panel de configuración no está activo.",
		Opening:          "Abriendo %s",
		OpenFailed:       "No pude abrir %s.",
		Closing:          "Cerrando %s",
		Searching:        "Buscando %s",
		Playing:          "Reproduciendo %s",
		VolumeUp:         "Subiendo volumen",
		VolumeDown:       "Bajando volumen",
		Mute:             "Silenciando",
		VolumeFailed:     "No pude cambiar el volumen.",
		AnalyzingScreen:  "Déjame ver...",
		VisionPrompt:     "Describe lo que ves en mi pantalla.",
		CaptureFailed:    "No pude capturar la pantalla.",
		VisionFailed:     "Tuve un problema analizando la imagen.",
		SystemStatus:     "CPU al %.0f%%, RAM %.0f%% usada (%.1f GB libres), disco %.0f%% usado.",
		SystemFailed:     "No pude leer el estado del sistema.",
		FolderNotFound:   "No encontré ninguna carpeta llamada %s.",
		FileNotFound:     "No encontré ningún archivo llamado %s.",
		OpeningFolder:    "Abriendo carpeta %s",
		OpeningFile:      "Abriendo archivo %s",
		FolderFound:      "Encontré %d carpetas llamadas %s.",
		FolderCreated:    "Carpeta creada en %s",
		FolderExists:     "La carpeta %s ya existe.",
		CreateFailed:     "No pude crear la carpeta %s.",
		OptionPrefix:     "Opción %d: %s en %s.",
		AskSelection:     "¿Cuál quieres? Di el número.",
		InvalidSelection: "Número inválido.",
		NoSelection:      "No escuché respuesta.",
		CommandBlocked:   "No puedo ejecutar eso por seguridad.",
		CommandConfirm:   "El comando %s necesita confirmación. ¿Lo ejecuto?",
		CommandCancelled: "Comando cancelado.",
		CommandDone:      "Comando ejecutado.",
		CommandOutput:    "Comando ejecutado: %s",
		CommandFailed:    "El comando falló.",
		PersonalitySet:   "Entendido. He ajustado mi %s al %d%%.",
		PersonalityWhat:  "No entendí qué parámetro ajustar.",
		MissingTarget:    "No entendí qué quieres que haga.",
	},
	words: map[WordSet][]string{
		StopWords:     {"para", "detente", "basta", "silencio", "cállate", "alto", "stop"},
		SleepWords:    {"descansa", "duerme", "a dormir", "hasta luego", "adiós"},
		ShutdownWords: {"apágate", "apagar sistema", "termina programa", "shutdown"},
		MapWords:      {"mapea", "mapear", "indexa", "indexar", "escanea carpetas"},
		GUIWords:      {"configuración", "panel", "ajustes"},
		YesWords:      {"sí", "claro", "dale", "confirmo", "adelante", "hazlo"},
		NoWords:       {"no", "cancela", "olvídalo"},
		Articles:      {"el", "la", "los", "las", "un", "una", "mi", "mis", "al", "del"},
	},
	traits: map[string]string{
		"humor":           "humor",
		"sarcasm":         "sarcasmo",
		"sincerity":       "sinceridad",
		"professionalism": "profesionalismo",
	},
	numbers: map[string]int{
		"uno": 1, "una": 1, "primero": 1, "primera": 1,
		"dos": 2, "segundo": 2, "segunda": 2,
		"tres": 3, "tercero": 3, "tercera": 3,
		"cuatro": 4, "cuarto": 4, "cuarta": 4,
		"cinco": 5, "quinto": 5, "quinta": 5,
		"seis": 6, "siete": 7, "ocho": 8, "nueve": 9, "diez": 10,
	},
}

var english = &language{
	texts: map[Key]string{
		Greeting:         "Hi, I'm %s. Say my name when you need me.",
		WakeResponse:     "Yes? How can I help?",
		SleepResponse:    "See you later. I'll be here if you need me.",
		ShutdownResponse: "Shutting down. Goodbye.",
		StoppedResponse:  "Stopped.",
		ErrorGeneric:     "Sorry, something went wrong.",
		LLMApology:       "Sorry, I had a problem processing your request.",
		MappingStart:     "Starting system mapping. This may take a few minutes.",
		MappingEnd:       "Mapping complete. %d folders indexed.",
		MappingFailed:    "I couldn't finish mapping folders.",
		OpenGUI:          "The settings panel is at %s.",
		GUIError:         "The settings panel is not running.",
		Opening:          "Opening %s",
		OpenFailed:       "I couldn't open %s.",
		Closing:          "Closing %s",
		Searching:        "Searching for %s",
		Playing:          "Playing %s",
		VolumeUp:         "Turning volume up",
		VolumeDown:       "Turning volume down",
		Mute:             "Muting",
		VolumeFailed:     "I couldn't change the volume.",
		AnalyzingScreen:  "Let me see...",
		VisionPrompt:     "Describe what you see on my screen.",
		CaptureFailed:    "I couldn't capture the screen.",
		VisionFailed:     "I had a problem analyzing the image.",
		SystemStatus:     "CPU at %.0f%%, RAM %.0f%% used (%.1f GB free), disk %.0f%% used.",
		SystemFailed:     "I couldn't read the system status.",
		FolderNotFound:   "I couldn't find a folder named %s.",
		FileNotFound:     "I couldn't find a file named %s.",
		OpeningFolder:    "Opening folder %s",
		OpeningFile:      "Opening file %s",
		FolderFound:      "I found %d folders named %s.",
		FolderCreated:    "Folder created at %s",
		FolderExists:     "The folder %s already exists.",
		CreateFailed:     "I couldn't create the folder %s.",
		OptionPrefix:     "Option %d: %s in %s.",
		AskSelection:     "Which one? Say the number.",
		InvalidSelection: "Invalid number.",
		NoSelection:      "I didn't hear an answer.",
		CommandBlocked:   "I can't run that for safety reasons.",
		CommandConfirm:   "The command %s needs confirmation. Should I run it?",
		CommandCancelled: "Command cancelled.",
		CommandDone:      "Command executed.",
		CommandOutput:    "Command executed: %s",
		CommandFailed:    "The command failed.",
		PersonalitySet:   "Got it. I've set my %s to %d%%.",
		PersonalityWhat:  "I didn't understand which setting to change.",
		MissingTarget:    "I didn't understand what you want me to do.",
	},
	words: map[WordSet][]string{
		StopWords:     {"stop", "enough", "quiet", "silence", "shut up", "be quiet"},
		SleepWords:    {"go to sleep", "sleep", "goodbye", "bye", "see you"},
		ShutdownWords: {"shut down", "shutdown", "turn off", "exit program"},
		MapWords:      {"map folders", "index folders", "scan folders", "map system"},
		GUIWords:      {"settings", "panel", "configuration"},
		YesWords:      {"yes", "sure", "confirm", "go ahead", "do it", "ok"},
		NoWords:       {"no", "cancel", "forget it", "don't"},
		Articles:      {"the", "a", "an", "my"},
	},
	traits: map[string]string{
		"humor":           "humor",
		"sarcasm":         "sarcasm",
		"sincerity":       "sincerity",
		"professionalism": "professionalism",
	},
	numbers: map[string]int{
		"one": 1, "first": 1,
		"two": 2, "second": 2,
		"three": 3, "third": 3,
		"four": 4, "fourth": 4,
		"five": 5, "fifth": 5,
		"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	},
}
