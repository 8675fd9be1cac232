package storage

// defaultDocuments is the starter corpus offered when the store is empty.
var defaultDocuments = []Document{
	{
		Title:    "CT 스캔 기본 프로토콜",
		Category: CategoryProtocol,
		Content: "CT 스캔의 기본적인 촬영 순서와 환자 준비사항입니다.\n\n" +
			"1. 환자 확인 및 동의서 작성\n2. 금속 제거 확인\n3. 조영제 주입 여부 확인\n" +
			"4. 환자 위치 설정\n5. 스캔 범위 설정\n6. 촬영 실시",
		Tags: "기본, 프로토콜, 촬영",
	},
	{
		Title:    "조영제 부작용 대응",
		Category: CategoryEmergency,
		Content: "조영제 투여 후 발생할 수 있는 부작용과 대응방법입니다.\n\n" +
			"**경미한 반응:**\n- 구역, 구토\n- 두드러기\n- 가려움\n\n" +
			"**중증 반응:**\n- 호흡곤란\n- 혈압 저하\n- 의식 저하\n\n" +
			"즉시 의료진 호출 및 응급처치 실시",
		Tags: "조영제, 응급, 부작용",
	},
	{
		Title:    "CT 장비 일일 점검사항",
		Category: CategoryEquipment,
		Content: "매일 실시해야 할 CT 장비 점검 항목입니다.\n\n" +
			"1. 갠트리 작동 확인\n2. 테이블 이동 확인\n3. 냉각 시스템 점검\n" +
			"4. 조영제 주입기 점검\n5. 응급장비 확인\n6. 점검 기록 작성",
		Tags: "장비, 점검, 일일",
	},
}

// DefaultDocuments returns a copy of the starter corpus.
func DefaultDocuments() []Document {
	docs := make([]Document, len(defaultDocuments))
	copy(docs, defaultDocuments)
	return docs
}

// SeedDefaults adds the starter corpus when the store is empty and returns
// the number of documents added.
func (s *Store) SeedDefaults() (int, error) {
	if s.Stats().Total > 0 {
		return 0, nil
	}
	added := 0
	for _, doc := range defaultDocuments {
		if _, err := s.Add(doc.Title, doc.Content, doc.Category, doc.Tags); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}
