package companion

import (
	"fmt"

	"kitabuddy/internal/model"
)

const budiSystemPrompt = `Anda adalah "Budi", ikon kepada aplikasi KitaBuddy.
Peranan anda adalah rakan siber yang mesra, empati, dan membantu kanak-kanak sekolah menangani isu buli.

Panduan Gaya:
- Gunakan Bahasa Melayu yang standard tetapi mesra dan mudah difahami oleh pelajar sekolah rendah dan menengah.
- Sentiasa beri nasihat yang selamat. Jika keadaan berbahaya, nasihatkan mereka memberitahu guru atau ibu bapa.
- Gunakan emoji yang sesuai untuk nampak ceria dan menyokong.
- Jangan terlalu formal seperti robot. Jadilah seperti abang atau kakak yang mengambil berat.

Topik utama anda: Pencegahan buli, keselamatan mental, dan persahabatan yang sihat.`

const englishReplyHint = "Reply in simple, friendly English."

const illustrationStyle = ", children's book illustration style, colorful, friendly"

func systemPrompt(lang model.Language) string {
	if lang == model.LanguageEnglish {
		return budiSystemPrompt + "\n\n" + englishReplyHint
	}
	return budiSystemPrompt
}

func storyPrompt(topic string, lang model.Language) string {
	if lang == model.LanguageEnglish {
		return fmt.Sprintf("Write a short children's story about %q. Include title, content, moral, and a visual prompt (in English) to generate an illustration.", topic)
	}
	return fmt.Sprintf("Tulis cerita kanak-kanak pendek tentang %q. Sertakan tajuk, kandungan cerita, pengajaran (moral), dan prompt visual (dalam Bahasa Inggeris) untuk menjana gambar ilustrasi.", topic)
}

func analyzePrompt(lang model.Language) string {
	if lang == model.LanguageEnglish {
		return "Look at this picture and explain what you see to a child. Use simple and cheerful language."
	}
	return "Lihat gambar ini dan terangkan apa yang anda nampak kepada kanak-kanak. Gunakan bahasa yang mudah dan ceria."
}
